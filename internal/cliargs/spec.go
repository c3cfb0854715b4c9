package cliargs

import (
	"strings"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

// ValueKind is how an argument consumes its value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindInt
	KindNumber
	KindList
	KindObject
	KindUnion
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	default:
		return "string"
	}
}

// ParseFunc converts one raw command-line value.
type ParseFunc func(raw string) (any, error)

// ArgumentSpec describes one command-line argument derived from a schema
// property.
type ArgumentSpec struct {
	// Name is the schema property name.
	Name string
	// Group is the config group the destination lives in ("server"), or
	// empty when Dest is already fully qualified.
	Group string
	Dest  string
	Help  string
	Kind  ValueKind
	// Types are the JSON types accepted by the property.
	Types []string

	// Required is always false; no option is contractually required.
	Required bool

	Default    any
	HasDefault bool
	// DeclaredDefault reports that Default comes from the schema rather
	// than from the per-kind fallback.
	DeclaredDefault bool

	Choices []string
	Parse   ParseFunc
}

// Key returns the dotted config path the argument's value is delivered at.
func (s ArgumentSpec) Key() string {
	if s.Group == "" {
		return s.Dest
	}
	return s.Group + "." + s.Dest
}

// ParseValue converts one raw value the way the argument's flag would:
// choices are enforced, and list arguments always yield a list.
func (s ArgumentSpec) ParseValue(raw string) (any, error) {
	if len(s.Choices) > 0 && !contains(s.Choices, raw) {
		return nil, domain.ErrArgumentInvalid.WithDetailsf("%q is not one of %s", raw, strings.Join(s.Choices, ", "))
	}
	parse := s.Parse
	if parse == nil {
		parse = parseString
	}
	v, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if s.Kind == KindList {
		if _, ok := v.([]any); !ok {
			v = []any{v}
		}
	}
	return v, nil
}

// Argument pairs flag spellings with the ArgumentSpec they share.
type Argument struct {
	Flags []string
	Spec  ArgumentSpec
}

// Override adjusts a schema-derived spec. Overrides run after the schema
// has been projected.
type Override func(*ArgumentSpec)

// Scope namespaces the arguments of one extension.
type Scope struct {
	Kind schema.Kind
	Name string
}

// Prefix returns the flag prefix of the scope: "<kind>-<name>-".
func (s Scope) Prefix() string {
	return string(s.Kind) + "-" + s.Name + "-"
}

// Options controls projection.
type Options struct {
	// AssignDefaults attaches defaults to every spec: the declared one, or
	// the per-kind fallback. Off by default so that an absent key stays
	// distinguishable from an explicit falsy value.
	AssignDefaults bool
	// Overrides are keyed by property name or destination name.
	Overrides map[string]Override
	// Extension namespaces the projected flags and destinations.
	Extension *Scope
	// CoerceUnion parses values of properties accepting several JSON
	// types. When nil, a JSON-or-scalar heuristic is used.
	CoerceUnion ParseFunc
}

// Find returns the argument whose property name or destination is name.
func Find(args []Argument, name string) (Argument, bool) {
	for _, a := range args {
		if a.Spec.Name == name || a.Spec.Dest == name {
			return a, true
		}
	}
	return Argument{}, false
}
