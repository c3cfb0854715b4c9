package schema

// Normalizer renames config keys to destination names using a registry's
// schemas.
type Normalizer struct {
	reg *Registry
}

// NewNormalizer creates a normalizer backed by reg.
func NewNormalizer(reg *Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Normalize returns a copy of doc with keys renamed to destination names.
//
// Only two levels are rewritten. Every top-level key is renamed by its schema
// node, or to camelCase when the schema does not know it. For a top-level
// key whose node is a config group, the child keys are renamed the same way.
// Anything deeper is passed through unchanged. Unknown keys are never dropped.
func (n *Normalizer) Normalize(doc map[string]any, schemaID string) (map[string]any, error) {
	root, err := n.reg.Tree(schemaID)
	if err != nil {
		return nil, err
	}
	return NormalizeWith(root, doc), nil
}

// NormalizeWith normalizes doc against an already resolved schema tree.
func NormalizeWith(root *Node, doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		node := root.Lookup(key)
		if node.IsGroup() {
			if group, ok := value.(map[string]any); ok {
				value = renameKeys(node, group)
			}
		}
		out[destFor(node, key)] = value
	}
	return out
}

func renameKeys(parent *Node, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[destFor(parent.Lookup(key), key)] = value
	}
	return out
}

func destFor(node *Node, key string) string {
	if node != nil && node.Dest != "" {
		return node.Dest
	}
	return CamelCase(key)
}
