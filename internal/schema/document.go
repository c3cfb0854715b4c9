package schema

import (
	"sort"
	"strings"
)

// Custom metadata keys understood on property nodes. Structural validation
// ignores them.
const (
	KeyAliases     = "cliAliases"
	KeyDest        = "cliDest"
	KeyIgnored     = "cliIgnored"
	KeyTransformer = "cliTransformer"
)

// JSON Schema type names.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNull    = "null"
)

// Document is a registered schema: its identifier, the canonical JSON form
// of the raw schema and the parsed property tree.
type Document struct {
	ID   string
	Raw  map[string]any
	Root *Node
}

// Node is one property node of a schema tree.
type Node struct {
	Name        string
	Types       []string
	Enum        []any
	Default     any
	HasDefault  bool
	Description string

	Aliases     []string
	Dest        string
	Ignored     bool
	Transformer string

	Properties map[string]*Node
	Items      *Node
}

// ParseNode builds a node tree from a raw schema object.
func ParseNode(name string, raw map[string]any) *Node {
	n := &Node{Name: name}

	switch t := raw["type"].(type) {
	case string:
		n.Types = []string{t}
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				n.Types = append(n.Types, s)
			}
		}
	}
	if enum, ok := raw["enum"].([]any); ok {
		n.Enum = enum
	}
	if def, ok := raw["default"]; ok {
		n.Default = def
		n.HasDefault = true
	}
	n.Description, _ = raw["description"].(string)

	if aliases, ok := raw[KeyAliases].([]any); ok {
		for _, a := range aliases {
			if s, ok := a.(string); ok && s != "" {
				n.Aliases = append(n.Aliases, s)
			}
		}
	}
	n.Dest, _ = raw[KeyDest].(string)
	n.Ignored, _ = raw[KeyIgnored].(bool)
	n.Transformer, _ = raw[KeyTransformer].(string)

	if props, ok := raw["properties"].(map[string]any); ok {
		n.Properties = make(map[string]*Node, len(props))
		for key, v := range props {
			if child, ok := v.(map[string]any); ok {
				n.Properties[key] = ParseNode(key, child)
			}
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		n.Items = ParseNode(name, items)
	}
	return n
}

// HasType reports whether t is one of the node's declared types.
func (n *Node) HasType(t string) bool {
	for _, nt := range n.Types {
		if nt == t {
			return true
		}
	}
	return false
}

// IsUnion reports whether the node accepts more than one JSON type.
func (n *Node) IsUnion() bool {
	return len(n.Types) > 1
}

// IsGroup reports whether the node is a config group: an object-typed node
// with child properties.
func (n *Node) IsGroup() bool {
	return n != nil && n.HasType(TypeObject) && len(n.Properties) > 0
}

// DestName returns the destination name of the node: the declared one, or
// the camelCase form of its property name.
func (n *Node) DestName() string {
	if n.Dest != "" {
		return n.Dest
	}
	return CamelCase(n.Name)
}

// PropertyNames returns child property names in lexical order.
func (n *Node) PropertyNames() []string {
	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a child by property name, falling back to the first child,
// in property name order, whose destination name equals key.
func (n *Node) Lookup(key string) *Node {
	if n == nil {
		return nil
	}
	if child, ok := n.Properties[key]; ok {
		return child
	}
	for _, name := range n.PropertyNames() {
		if child := n.Properties[name]; child.DestName() == key {
			return child
		}
	}
	return nil
}

// Path resolves a dotted path of property names (or destination names)
// below n. An empty path returns n.
func (n *Node) Path(path string) *Node {
	if path == "" {
		return n
	}
	cur := n
	for _, seg := range strings.Split(path, ".") {
		cur = cur.Lookup(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// shallowClone copies n with its own Properties map.
func (n *Node) shallowClone() *Node {
	c := *n
	c.Properties = make(map[string]*Node, len(n.Properties))
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	return &c
}
