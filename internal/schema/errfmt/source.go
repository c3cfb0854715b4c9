package errfmt

import (
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// sourceIndex maps JSON pointers to positions in YAML or JSON source text.
type sourceIndex struct {
	lines []string
	root  *yaml.Node
}

type location struct {
	line   int
	column int
	value  string
}

func indexSource(src []byte) *sourceIndex {
	idx := &sourceIndex{}
	if len(src) == 0 {
		return idx
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return idx
	}
	idx.lines = strings.Split(strings.TrimRight(string(src), "\n"), "\n")
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		idx.root = doc.Content[0]
	}
	return idx
}

// locate finds the node at pointer. When key is set, the position of that
// key inside the located mapping is returned instead.
func (s *sourceIndex) locate(pointer, key string) (location, bool) {
	if s.root == nil {
		return location{}, false
	}
	node := s.root
	if pointer != "" {
		for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
			node = child(node, unescapeToken(tok))
			if node == nil {
				return location{}, false
			}
		}
	}
	if key != "" {
		node = deref(node)
		if node.Kind != yaml.MappingNode {
			return location{}, false
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				k := node.Content[i]
				return location{line: k.Line, column: k.Column, value: k.Value}, true
			}
		}
		return location{}, false
	}
	node = deref(node)
	loc := location{line: node.Line, column: node.Column}
	if node.Kind == yaml.ScalarNode {
		loc.value = node.Value
	}
	return loc, loc.line > 0 && loc.line <= len(s.lines)
}

func child(node *yaml.Node, tok string) *yaml.Node {
	node = deref(node)
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == tok {
				return node.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		i, err := strconv.Atoi(tok)
		if err == nil && i >= 0 && i < len(node.Content) {
			return node.Content[i]
		}
	}
	return nil
}

func deref(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func unescapeToken(tok string) string {
	if u, err := url.PathUnescape(tok); err == nil {
		tok = u
	}
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
}
