package extension

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yndnr/autoserve/internal/schema"
	"github.com/yndnr/autoserve/internal/schema/validate"
)

// Problem messages.
const (
	MsgPlatformNames       = "Missing or incorrect supported platformNames list."
	MsgEmptyPlatformNames  = "Empty platformNames list."
	MsgAutomationName      = "Missing or incorrect automationName"
	MsgDuplicateAutomation = "Multiple drivers claim support for the same automationName"
	MsgSchemaFormat        = "Incorrectly formatted schema field; must be a path to a schema file."
)

// Problem is one issue found in a manifest entry. Val is the offending
// value.
type Problem struct {
	Err string `json:"err"`
	Val any    `json:"val"`
}

// Result holds the problems of one entry and the schema it registered.
type Result struct {
	Kind     schema.Kind `json:"kind"`
	Name     string      `json:"name"`
	SchemaID string      `json:"schemaId,omitempty"`
	Problems []Problem   `json:"problems"`
}

// OK reports whether the entry has no problems.
func (r Result) OK() bool {
	return len(r.Problems) == 0
}

// Report is the outcome of checking a whole manifest.
type Report struct {
	Results []Result `json:"results"`
}

// Problems returns the number of problems across all entries.
func (r Report) Problems() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Problems)
	}
	return n
}

// Recorder receives manifest metrics. A nil Recorder is valid.
type Recorder interface {
	ManifestProblems(kind string, n int)
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

// WithSchemaLoader replaces the file based schema loader.
func WithSchemaLoader(l SchemaLoader) Option {
	return func(v *Validator) {
		if l != nil {
			v.loader = l
		}
	}
}

// Validator checks manifest entries and registers the schemas they
// reference. Entries are checked in order: a duplicate automationName is
// reported on every occurrence after the first one seen in the batch.
type Validator struct {
	reg      *schema.Registry
	schemas  *validate.Validator
	loader   SchemaLoader
	logger   *slog.Logger
	recorder Recorder

	automationNames map[string]string // automationName -> claiming driver
}

// NewValidator creates a validator that registers extension schemas into
// reg.
func NewValidator(reg *schema.Registry, opts ...Option) *Validator {
	v := &Validator{
		reg:             reg,
		loader:          FileLoader{},
		logger:          slog.Default(),
		automationNames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.schemas = validate.New(reg, validate.WithLogger(v.logger))
	return v
}

// Reset starts a new batch.
func (v *Validator) Reset() {
	v.automationNames = make(map[string]string)
}

// CheckManifest checks every entry of m as one batch, drivers first.
func (v *Validator) CheckManifest(m *Manifest) Report {
	v.Reset()
	var rep Report
	for _, e := range m.Entries() {
		problems, id := v.check(e)
		rep.Results = append(rep.Results, Result{
			Kind:     e.Kind,
			Name:     e.Name,
			SchemaID: id,
			Problems: problems,
		})
	}
	return rep
}

// Check checks one entry within the current batch. It never fails: every
// issue, including a schema that cannot be loaded or registered, is
// returned as a Problem.
func (v *Validator) Check(e Entry) []Problem {
	problems, _ := v.check(e)
	return problems
}

func (v *Validator) check(e Entry) ([]Problem, string) {
	problems := []Problem{}
	if e.Kind == schema.KindDriver {
		problems = append(problems, v.checkPlatformNames(e)...)
		problems = append(problems, v.checkAutomationName(e)...)
	}
	schemaProblems, id := v.checkSchema(e)
	problems = append(problems, schemaProblems...)

	if len(problems) > 0 {
		v.logger.Warn("extension manifest entry has problems",
			"kind", e.Kind,
			"name", e.Name,
			"count", len(problems),
		)
		if v.recorder != nil {
			v.recorder.ManifestProblems(string(e.Kind), len(problems))
		}
	}
	return problems, id
}

func (v *Validator) checkPlatformNames(e Entry) []Problem {
	list, ok := e.PlatformNames.([]any)
	if !ok {
		return []Problem{{Err: MsgPlatformNames, Val: e.PlatformNames}}
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return []Problem{{Err: MsgPlatformNames, Val: e.PlatformNames}}
		}
	}
	if len(list) == 0 {
		return []Problem{{Err: MsgEmptyPlatformNames, Val: e.PlatformNames}}
	}
	return nil
}

func (v *Validator) checkAutomationName(e Entry) []Problem {
	name, ok := e.AutomationName.(string)
	if !ok {
		return []Problem{{Err: MsgAutomationName, Val: e.AutomationName}}
	}
	if _, seen := v.automationNames[name]; seen {
		return []Problem{{Err: MsgDuplicateAutomation, Val: name}}
	}
	v.automationNames[name] = e.Name
	return nil
}

// checkSchema loads, registers and mounts the schema the entry references.
// A schema that does not compile on its own is registered but never mounted.
func (v *Validator) checkSchema(e Entry) ([]Problem, string) {
	if e.Schema == nil {
		return nil, ""
	}
	ref, ok := e.Schema.(string)
	if !ok || ref == "" {
		return []Problem{{Err: MsgSchemaFormat, Val: e.Schema}}, ""
	}
	if !allowedExtension(ref) {
		return []Problem{{
			Err: "Schema file has unsupported extension. Allowed: " + strings.Join(AllowedSchemaExtensions, ", "),
			Val: ref,
		}}, ""
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.InstallSpec, ref)
	}
	fail := func(err error) ([]Problem, string) {
		v.logger.Debug("extension schema rejected", "name", e.Name, "path", path, "error", err)
		return []Problem{{Err: fmt.Sprintf("Unable to register schema at path %s: %v", path, err), Val: ref}}, ""
	}

	raw, err := v.loader.LoadSchemaAt(path)
	if err != nil {
		return fail(err)
	}
	id, err := v.reg.Register(raw, e.PkgName)
	if err != nil {
		return fail(err)
	}
	if err := v.schemas.Check(id); err != nil {
		return fail(err)
	}
	if err := v.reg.Mount(e.Kind, e.Name, id); err != nil {
		return fail(err)
	}
	v.logger.Debug("extension schema registered", "kind", e.Kind, "name", e.Name, "schema_id", id)
	return nil, id
}

func allowedExtension(ref string) bool {
	ext := strings.ToLower(filepath.Ext(ref))
	for _, allowed := range AllowedSchemaExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
