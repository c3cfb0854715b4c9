package schema

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yndnr/autoserve/internal/core/domain"
)

// CoreID is the identifier of the core configuration schema.
const CoreID = "autoserve-config.json"

// baseURL prefixes the compile URLs handed to the JSON Schema compiler.
const baseURL = "https://schemas.autoserve.dev/"

// Kind is an extension kind.
type Kind string

const (
	KindDriver Kind = "driver"
	KindPlugin Kind = "plugin"
)

// Kinds lists extension kinds in catalog order.
var Kinds = []Kind{KindDriver, KindPlugin}

// Valid reports whether k is a known extension kind.
func (k Kind) Valid() bool {
	return k == KindDriver || k == KindPlugin
}

// Mount attaches a registered extension schema below the <kind>.<name>
// property of the core schema.
type Mount struct {
	Kind Kind
	Name string
	ID   string
}

// Key returns the dotted path of the mount inside the core schema.
func (m Mount) Key() string {
	return string(m.Kind) + "." + m.Name
}

// Recorder receives registry metrics. A nil Recorder is valid.
type Recorder interface {
	SchemasRegistered(total int)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// Registry holds named schema documents. It is append-only: documents and
// mounts are never removed, and registering an existing id is a no-op.
type Registry struct {
	mu         sync.RWMutex
	docs       map[string]*Document
	urls       map[string]string // id -> compile URL
	ids        map[string]string // compile URL -> id
	order      []string
	mounts     []Mount
	mountIndex map[string]string // kind.name -> id
	generation uint64

	tree    *Node
	treeGen uint64

	logger   *slog.Logger
	recorder Recorder
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		docs:       make(map[string]*Document),
		urls:       make(map[string]string),
		ids:        make(map[string]string),
		mountIndex: make(map[string]string),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewCoreRegistry creates a registry seeded with the core schema.
func NewCoreRegistry(opts ...Option) (*Registry, error) {
	core, err := CoreSchema()
	if err != nil {
		return nil, err
	}
	r := NewRegistry(opts...)
	if _, err := r.Register(core, CoreID); err != nil {
		return nil, fmt.Errorf("register core schema: %w", err)
	}
	return r, nil
}

// Register adds raw under id, or under its "$id" when id is empty, and
// returns the id it was stored under. The schema is meta-validated before it
// is accepted. Registering an id that already exists is a no-op.
func (r *Registry) Register(raw any, id string) (string, error) {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return "", domain.ErrSchemaInvalid.WithDetails("schema must be a JSON object")
	}
	if id == "" {
		id, _ = obj["$id"].(string)
	}
	if id == "" {
		return "", domain.ErrSchemaMissingID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[id]; exists {
		r.logger.Debug("schema already registered", "schema_id", id)
		return id, nil
	}

	canonical, err := canonicalize(obj)
	if err != nil {
		return "", domain.ErrSchemaInvalid.WithDetails(id).WithCause(err)
	}
	url := fmt.Sprintf("%s%d.json", baseURL, len(r.order))
	if err := metaCheck(url, canonical); err != nil {
		return "", domain.ErrSchemaInvalid.WithDetails(id).WithCause(err)
	}

	r.docs[id] = &Document{ID: id, Raw: canonical, Root: ParseNode("", canonical)}
	r.urls[id] = url
	r.ids[url] = id
	r.order = append(r.order, id)
	r.generation++

	r.logger.Info("schema registered", "schema_id", id, "total", len(r.order))
	if r.recorder != nil {
		r.recorder.SchemasRegistered(len(r.order))
	}
	return id, nil
}

// Get returns the document registered under id.
func (r *Registry) Get(id string) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Mount attaches the schema registered under id to <kind>.<name> of the core
// schema. Mounting the same id twice is a no-op; mounting a different id at
// an occupied location fails.
func (r *Registry) Mount(kind Kind, name, id string) error {
	if !kind.Valid() {
		return domain.ErrSchemaInvalid.WithDetailsf("unknown extension kind %q", kind)
	}
	if name == "" {
		return domain.ErrSchemaInvalid.WithDetails("extension name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return domain.ErrSchemaNotFound.WithDetails(id)
	}
	m := Mount{Kind: kind, Name: name, ID: id}
	if existing, ok := r.mountIndex[m.Key()]; ok {
		if existing == id {
			return nil
		}
		return domain.ErrSchemaMountConflict.WithDetailsf("%s is mounted from %s", m.Key(), existing)
	}
	r.mountIndex[m.Key()] = id
	r.mounts = append(r.mounts, m)
	r.generation++

	r.logger.Info("extension schema mounted", "kind", string(kind), "name", name, "schema_id", id)
	return nil
}

// Mounts returns extension mounts in mount order.
func (r *Registry) Mounts() []Mount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Mount(nil), r.mounts...)
}

// MountFor returns the mount of the given extension.
func (r *Registry) MountFor(kind Kind, name string) (Mount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := Mount{Kind: kind, Name: name}
	id, ok := r.mountIndex[m.Key()]
	m.ID = id
	return m, ok
}

// Generation increases with every registration and mount.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// IDForURL maps a compile URL (with or without fragment) back to its id.
func (r *Registry) IDForURL(url string) (string, bool) {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[url]
	return id, ok
}

// Snapshot is a consistent view of the registry at one generation.
type Snapshot struct {
	Generation uint64
	Mounts     []Mount
	docs       map[string]*Document
	urls       map[string]string
}

// Snapshot captures the current registry state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		Generation: r.generation,
		Mounts:     append([]Mount(nil), r.mounts...),
		docs:       make(map[string]*Document, len(r.docs)),
		urls:       make(map[string]string, len(r.urls)),
	}
	for id, doc := range r.docs {
		s.docs[id] = doc
		s.urls[id] = r.urls[id]
	}
	return s
}

// Document returns the document registered under id in the snapshot.
func (s Snapshot) Document(id string) (*Document, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

// URL returns the compile URL of id in the snapshot.
func (s Snapshot) URL(id string) string {
	return s.urls[id]
}

// Tree returns the property tree of id. The core tree includes every mounted
// extension root below its <kind>.<name> property.
func (r *Registry) Tree(id string) (*Node, error) {
	r.mu.RLock()
	doc, ok := r.docs[id]
	if !ok {
		r.mu.RUnlock()
		return nil, domain.ErrSchemaNotFound.WithDetails(id)
	}
	if id != CoreID || len(r.mounts) == 0 {
		r.mu.RUnlock()
		return doc.Root, nil
	}
	if r.tree != nil && r.treeGen == r.generation {
		tree := r.tree
		r.mu.RUnlock()
		return tree, nil
	}
	gen := r.generation
	tree := composeTree(doc.Root, r.mounts, r.docs)
	r.mu.RUnlock()

	r.mu.Lock()
	if r.generation == gen {
		r.tree, r.treeGen = tree, gen
	}
	r.mu.Unlock()
	return tree, nil
}

func composeTree(core *Node, mounts []Mount, docs map[string]*Document) *Node {
	root := core.shallowClone()
	for _, m := range mounts {
		ext, ok := docs[m.ID]
		if !ok {
			continue
		}
		kindNode, ok := root.Properties[string(m.Kind)]
		if !ok {
			kindNode = &Node{Name: string(m.Kind), Types: []string{TypeObject}}
		}
		kindNode = kindNode.shallowClone()
		mounted := ext.Root.shallowClone()
		mounted.Name = m.Name
		if mounted.Dest == "" {
			mounted.Dest = m.Name
		}
		if len(mounted.Types) == 0 {
			mounted.Types = []string{TypeObject}
		}
		kindNode.Properties[m.Name] = mounted
		root.Properties[string(m.Kind)] = kindNode
	}
	return root
}

// CompileSource returns a copy of raw suitable for compiling under a
// registry URL: the top-level "$id" is dropped so the compile URL stays
// authoritative.
func CompileSource(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "$id" {
			continue
		}
		out[k] = v
	}
	return out
}

// canonicalize round-trips v through JSON so numbers become float64 and
// every map is a map[string]any.
func canonicalize(v map[string]any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return out, nil
}

// metaCheck compiles raw alone, which validates it against its meta-schema.
// References to other documents are not resolved here.
func metaCheck(url string, raw map[string]any) error {
	src := withoutExternalRefs(CompileSource(raw))
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return err
	}
	_, err = c.Compile(url)
	return err
}

// withoutExternalRefs returns a copy of v in which external "$ref"s are
// dropped, so a document can be checked before the documents it references
// are known.
func withoutExternalRefs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if ref, ok := child.(string); ok && k == "$ref" && !strings.HasPrefix(ref, "#") {
				continue
			}
			out[k] = withoutExternalRefs(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = withoutExternalRefs(child)
		}
		return out
	default:
		return v
	}
}
