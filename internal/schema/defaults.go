package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/yndnr/autoserve/internal/core/domain"
)

// DefaultsCache computes declared defaults of a config group, keyed by
// destination name. Results are cached per (schema, group, excluded keys);
// the schemas behind a registry never change once registered, so entries
// are never invalidated.
type DefaultsCache struct {
	reg *Registry

	mu      sync.Mutex
	entries map[string]map[string]any
}

// NewDefaultsCache creates a defaults cache backed by reg.
func NewDefaultsCache(reg *Registry) *DefaultsCache {
	return &DefaultsCache{
		reg:     reg,
		entries: make(map[string]map[string]any),
	}
}

// For returns the declared defaults of the children of group in schemaID.
// group is a dotted path ("server", "driver.uiautomator2"); an empty group
// means the schema root. Properties named (or destined) in exclude are left
// out, as is every property without a declared default.
func (c *DefaultsCache) For(schemaID, group string, exclude ...string) (map[string]any, error) {
	key := cacheKey(schemaID, group, exclude)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return copyMap(cached), nil
	}

	root, err := c.reg.Tree(schemaID)
	if err != nil {
		return nil, err
	}
	node := root.Path(group)
	if node == nil {
		return nil, domain.ErrSchemaNotFound.WithDetailsf("%s has no group %q", schemaID, group)
	}

	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	defaults := make(map[string]any)
	for _, name := range node.PropertyNames() {
		child := node.Properties[name]
		if !child.HasDefault || skip[name] || skip[child.DestName()] {
			continue
		}
		defaults[child.DestName()] = child.Default
	}

	c.mu.Lock()
	c.entries[key] = defaults
	c.mu.Unlock()
	return copyMap(defaults), nil
}

func cacheKey(schemaID, group string, exclude []string) string {
	sorted := append([]string(nil), exclude...)
	sort.Strings(sorted)
	return schemaID + "|" + group + "|" + strings.Join(sorted, ",")
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies decoded JSON maps and slices.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}
