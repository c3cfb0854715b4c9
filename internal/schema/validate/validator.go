package validate

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

// ValidationError describes one structural violation. SchemaID names the
// schema the violated keyword belongs to and is used for grouping.
type ValidationError struct {
	InstancePath string         `json:"instancePath"`
	SchemaPath   string         `json:"schemaPath"`
	Keyword      string         `json:"keyword"`
	Params       map[string]any `json:"params"`
	Message      string         `json:"message"`
	SchemaID     string         `json:"-"`
}

// Recorder receives validation metrics. A nil Recorder is valid.
type Recorder interface {
	ValidationErrors(schemaID string, n int)
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the validator logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(v *Validator) {
		v.recorder = rec
	}
}

// Validator applies registered schemas to candidate values. Compiled
// schemas are cached per schema id and registry generation.
type Validator struct {
	reg *schema.Registry

	mu    sync.Mutex
	cache map[string]*compiled

	logger   *slog.Logger
	recorder Recorder
}

type compiled struct {
	generation uint64
	schema     *jsonschema.Schema
	sources    map[string]map[string]any // compile URL -> compiled document
	ids        map[string]string         // compile URL -> schema id
}

// New creates a validator backed by reg.
func New(reg *schema.Registry, opts ...Option) *Validator {
	v := &Validator{
		reg:    reg,
		cache:  make(map[string]*compiled),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks value against the schema registered under id and returns
// every violation found. A conforming value yields an empty slice. The core
// schema is validated together with every mounted extension schema.
func (v *Validator) Validate(value any, id string) ([]ValidationError, error) {
	c, err := v.compiled(id)
	if err != nil {
		return nil, err
	}

	inst, err := canonicalize(value)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", id, err)
	}

	verr := c.schema.Validate(inst)
	if verr == nil {
		return []ValidationError{}, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(verr, &ve) {
		return nil, fmt.Errorf("validate %s: %w", id, verr)
	}

	var out []ValidationError
	for _, leaf := range leaves(ve) {
		out = append(out, c.convert(leaf, inst, id)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].InstancePath != out[j].InstancePath {
			return out[i].InstancePath < out[j].InstancePath
		}
		return out[i].SchemaPath < out[j].SchemaPath
	})

	counts := make(map[string]int)
	for _, e := range out {
		counts[e.SchemaID]++
	}
	for sid, n := range counts {
		v.logger.Debug("validation errors", "schema_id", sid, "count", n)
		if v.recorder != nil {
			v.recorder.ValidationErrors(sid, n)
		}
	}
	return out, nil
}

// Check compiles the schema registered under id on its own and reports
// whether it is usable. References the schema cannot resolve are errors.
func (v *Validator) Check(id string) error {
	_, err := v.compiled(id)
	return err
}

func (v *Validator) compiled(id string) (*compiled, error) {
	snap := v.reg.Snapshot()
	if _, ok := snap.Document(id); !ok {
		return nil, domain.ErrSchemaNotFound.WithDetails(id)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.cache[id]; ok && c.generation == snap.Generation {
		return c, nil
	}

	c, err := compile(snap, id, v.logger)
	if err != nil {
		return nil, err
	}
	v.cache[id] = c
	v.logger.Debug("schema compiled", "schema_id", id, "generation", snap.Generation)
	return c, nil
}

// compile builds the schema of id. For the core schema every mount is
// compiled on its own first; a mount that does not compile is left out and
// its location stays as the core schema declares it.
func compile(snap schema.Snapshot, id string, logger *slog.Logger) (*compiled, error) {
	c := &compiled{
		generation: snap.Generation,
		sources:    make(map[string]map[string]any),
		ids:        make(map[string]string),
	}

	doc, _ := snap.Document(id)
	root := schema.CompileSource(doc.Raw)
	c.add(snap.URL(id), id, root)

	if id == schema.CoreID {
		for _, m := range snap.Mounts {
			ext, ok := snap.Document(m.ID)
			if !ok {
				continue
			}
			if _, err := compile(snap, m.ID, logger); err != nil {
				logger.Warn("extension schema skipped",
					"kind", string(m.Kind),
					"name", m.Name,
					"schema_id", m.ID,
					"error", err,
				)
				continue
			}
			url := snap.URL(m.ID)
			c.add(url, m.ID, schema.CompileSource(ext.Raw))
			root = mountRef(root, m, url)
		}
		c.sources[snap.URL(id)] = root
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	for url, src := range c.sources {
		data, err := json.Marshal(src)
		if err != nil {
			return nil, domain.ErrSchemaInvalid.WithDetails(c.ids[url]).WithCause(err)
		}
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, domain.ErrSchemaInvalid.WithDetails(c.ids[url]).WithCause(err)
		}
	}
	sch, err := compiler.Compile(snap.URL(id))
	if err != nil {
		return nil, domain.ErrSchemaInvalid.WithDetails(id).WithCause(err)
	}
	c.schema = sch
	return c, nil
}

func (c *compiled) add(url, id string, src map[string]any) {
	c.sources[url] = src
	c.ids[url] = id
}

// mountRef returns a copy of root whose <kind>.properties.<name> refers to
// the extension schema at url.
func mountRef(root map[string]any, m schema.Mount, url string) map[string]any {
	out := shallow(root)
	props := shallow(out["properties"])
	kindNode := shallow(props[string(m.Kind)])
	kindProps := shallow(kindNode["properties"])
	kindProps[m.Name] = map[string]any{"$ref": url}
	kindNode["properties"] = kindProps
	props[string(m.Kind)] = kindNode
	out["properties"] = props
	return out
}

func shallow(v any) map[string]any {
	m, _ := v.(map[string]any)
	out := make(map[string]any, len(m)+1)
	for k, val := range m {
		out[k] = val
	}
	return out
}

func canonicalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

// convert maps a library error to one or more ValidationErrors. required
// and additionalProperties violations are split per property name.
func (c *compiled) convert(leaf *jsonschema.ValidationError, inst any, fallbackID string) []ValidationError {
	url, fragment, _ := strings.Cut(leaf.AbsoluteKeywordLocation, "#")
	sid, ok := c.ids[url]
	if !ok {
		sid = fallbackID
	}
	keyword := lastSegment(leaf.KeywordLocation)
	base := ValidationError{
		InstancePath: leaf.InstanceLocation,
		SchemaPath:   "#" + fragment,
		Keyword:      keyword,
		Params:       map[string]any{},
		Message:      leaf.Message,
		SchemaID:     sid,
	}

	kwValue, _ := resolvePointer(c.sources[url], fragment)
	parent, _ := resolvePointer(c.sources[url], parentPointer(fragment))
	instance, _ := resolvePointer(inst, leaf.InstanceLocation)

	switch keyword {
	case "required":
		var out []ValidationError
		obj, _ := instance.(map[string]any)
		names, _ := kwValue.([]any)
		for _, n := range names {
			name, _ := n.(string)
			if _, present := obj[name]; present {
				continue
			}
			e := base
			e.Params = map[string]any{"missingProperty": name}
			e.Message = fmt.Sprintf("must have required property '%s'", name)
			out = append(out, e)
		}
		if len(out) > 0 {
			return out
		}
	case "additionalProperties":
		var out []ValidationError
		for _, name := range additionalNames(parent, instance) {
			e := base
			e.Params = map[string]any{"additionalProperty": name}
			e.Message = "must NOT have additional properties"
			out = append(out, e)
		}
		if len(out) > 0 {
			return out
		}
	default:
		base.Params, base.Message = describe(keyword, kwValue, leaf.Message)
	}
	return []ValidationError{base}
}
