package cliargs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithTransformer registers a named value transformer that schema nodes can
// select through cliTransformer.
func WithTransformer(name string, fn ParseFunc) ProjectorOption {
	return func(p *Projector) {
		p.transformers[name] = fn
	}
}

// Projector derives CLI arguments from the schemas held by a registry.
type Projector struct {
	reg          *schema.Registry
	defaults     *schema.DefaultsCache
	transformers map[string]ParseFunc
}

// NewProjector creates a projector backed by reg with the csv and json
// transformers registered.
func NewProjector(reg *schema.Registry, opts ...ProjectorOption) *Projector {
	p := &Projector{
		reg:      reg,
		defaults: schema.NewDefaultsCache(reg),
		transformers: map[string]ParseFunc{
			TransformerCSV:  ParseCSV,
			TransformerJSON: ParseJSON,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project derives the flags and spec of one property node. With an
// extension scope every flag is prefixed with the scope and the destination
// is qualified with <kind>.<name>.
func (p *Projector) Project(name string, node *schema.Node, opts Options) Argument {
	scope := opts.Extension
	prefix := ""
	if scope != nil {
		prefix = scope.Prefix()
	}

	flags := []string{"--" + prefix + name}
	for _, alias := range node.Aliases {
		flags = append(flags, aliasFlag(prefix+alias))
	}

	spec := ArgumentSpec{
		Name:  name,
		Dest:  node.DestName(),
		Help:  node.Description,
		Types: append([]string(nil), node.Types...),
	}
	if scope != nil {
		spec.Dest = string(scope.Kind) + "." + scope.Name + "." + spec.Dest
	}

	p.applyKind(&spec, node, opts)

	if len(node.Enum) > 0 {
		spec.Choices = make([]string, len(node.Enum))
		for i, v := range node.Enum {
			spec.Choices[i] = fmt.Sprint(v)
		}
	}

	if node.Transformer != "" {
		if fn, ok := p.transformers[node.Transformer]; ok {
			spec.Parse = fn
		}
	}

	if opts.AssignDefaults {
		if node.HasDefault {
			spec.Default, spec.HasDefault, spec.DeclaredDefault = schema.CloneValue(node.Default), true, true
		} else {
			spec.Default, spec.HasDefault = fallbackDefault(spec.Kind, node), true
		}
	}

	if o, ok := opts.Overrides[name]; ok {
		o(&spec)
	}
	if o, ok := opts.Overrides[spec.Dest]; ok && spec.Dest != name {
		o(&spec)
	}
	spec.Required = false

	return Argument{Flags: flags, Spec: spec}
}

// ProjectGroup projects every child of a core config group, in property
// name order. Ignored properties are skipped.
func (p *Projector) ProjectGroup(group string, opts Options) ([]Argument, error) {
	doc, ok := p.reg.Get(schema.CoreID)
	if !ok {
		return nil, domain.ErrSchemaNotFound.WithDetails(schema.CoreID)
	}
	node := doc.Root.Lookup(group)
	if !node.IsGroup() {
		return nil, domain.ErrSchemaNotFound.WithDetailsf("%s has no config group %q", schema.CoreID, group)
	}
	opts.Extension = nil
	args := p.projectChildren(node, opts)
	for i := range args {
		args[i].Spec.Group = group
	}
	return args, nil
}

// ProjectExtension projects the schema registered under schemaID as the
// arguments of one extension. Flags are prefixed with <kind>-<name>- so
// they never collide with core options or with other extensions.
func (p *Projector) ProjectExtension(kind schema.Kind, name, schemaID string, opts Options) ([]Argument, error) {
	if !kind.Valid() {
		return nil, domain.ErrSchemaInvalid.WithDetailsf("unknown extension kind %q", kind)
	}
	doc, ok := p.reg.Get(schemaID)
	if !ok {
		return nil, domain.ErrSchemaNotFound.WithDetails(schemaID)
	}
	opts.Extension = &Scope{Kind: kind, Name: name}
	return p.projectChildren(doc.Root, opts), nil
}

// Catalog projects the server group followed by every mounted extension,
// in mount order.
func (p *Projector) Catalog(opts Options) ([]Argument, error) {
	args, err := p.ProjectGroup(schema.GroupServer, opts)
	if err != nil {
		return nil, err
	}
	for _, m := range p.reg.Mounts() {
		ext, err := p.ProjectExtension(m.Kind, m.Name, m.ID, opts)
		if err != nil {
			return nil, err
		}
		args = append(args, ext...)
	}
	return args, nil
}

// Defaults returns the declared defaults of a config group ("server") or of
// a mounted extension ("driver.uiautomator2"), keyed by destination name.
func (p *Projector) Defaults(group string, exclude ...string) (map[string]any, error) {
	return p.defaults.For(schema.CoreID, group, exclude...)
}

func (p *Projector) projectChildren(node *schema.Node, opts Options) []Argument {
	var args []Argument
	for _, name := range node.PropertyNames() {
		child := node.Properties[name]
		if child.Ignored {
			continue
		}
		args = append(args, p.Project(name, child, opts))
	}
	return args
}

func (p *Projector) applyKind(spec *ArgumentSpec, node *schema.Node, opts Options) {
	switch {
	case node.IsUnion():
		spec.Kind = KindUnion
		spec.Parse = opts.CoerceUnion
		if spec.Parse == nil {
			spec.Parse = coerceUnion(node.Types)
		}
	case node.HasType(schema.TypeBoolean):
		spec.Kind = KindBool
		spec.Parse = parseBool
	case node.HasType(schema.TypeArray):
		spec.Kind = KindList
		spec.Parse = parseString
	case node.HasType(schema.TypeObject):
		spec.Kind = KindObject
		spec.Parse = parseJSONValue
	case node.HasType(schema.TypeInteger):
		spec.Kind = KindInt
		spec.Parse = parseInt
	case node.HasType(schema.TypeNumber):
		spec.Kind = KindNumber
		spec.Parse = parseNumber
	default:
		spec.Kind = KindString
		spec.Parse = parseString
	}
}

// fallbackDefault is the default assigned to a property without a declared
// one when defaults are requested.
func fallbackDefault(kind ValueKind, node *schema.Node) any {
	switch kind {
	case KindBool:
		return false
	case KindList:
		return []any{}
	case KindObject:
		return map[string]any{}
	case KindUnion:
		if node.HasType(schema.TypeArray) {
			return []any{}
		}
	}
	return nil
}

// aliasFlag renders an alias: shorter than three characters is a
// single-dash flag, anything longer is a double-dash flag.
func aliasFlag(alias string) string {
	if len(alias) < 3 {
		return "-" + alias
	}
	return "--" + alias
}

func parseString(raw string) (any, error) {
	return raw, nil
}

func parseBool(raw string) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, domain.ErrArgumentInvalid.WithDetailsf("%q is not a boolean", raw)
	}
	return b, nil
}

func parseInt(raw string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, domain.ErrArgumentInvalid.WithDetailsf("%q is not an integer", raw)
	}
	return n, nil
}

func parseNumber(raw string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, domain.ErrArgumentInvalid.WithDetailsf("%q is not a number", raw)
	}
	return f, nil
}

func parseJSONValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, domain.ErrArgumentInvalid.WithDetailsf("%q is not valid JSON", raw).WithCause(err)
	}
	return v, nil
}

// coerceUnion parses JSON when the value looks like an object or array the
// property accepts, then numbers and booleans, and falls back to the raw
// string.
func coerceUnion(types []string) ParseFunc {
	accepts := make(map[string]bool, len(types))
	for _, t := range types {
		accepts[t] = true
	}
	return func(raw string) (any, error) {
		trimmed := strings.TrimSpace(raw)
		if (accepts[schema.TypeObject] && strings.HasPrefix(trimmed, "{")) ||
			(accepts[schema.TypeArray] && strings.HasPrefix(trimmed, "[")) {
			return parseJSONValue(trimmed)
		}
		if accepts[schema.TypeInteger] {
			if n, err := strconv.Atoi(trimmed); err == nil {
				return n, nil
			}
		}
		if accepts[schema.TypeNumber] {
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return f, nil
			}
		}
		if accepts[schema.TypeBoolean] {
			if b, err := strconv.ParseBool(trimmed); err == nil {
				return b, nil
			}
		}
		return raw, nil
	}
}
