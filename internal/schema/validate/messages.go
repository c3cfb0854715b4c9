package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// describe derives params and a message for a violated keyword from the
// keyword's value in the schema. Unknown keywords keep the library message.
func describe(keyword string, value any, fallback string) (map[string]any, string) {
	switch keyword {
	case "type":
		types := typeNames(value)
		return map[string]any{"type": types}, "must be " + types
	case "enum":
		return map[string]any{"allowedValues": value}, "must be equal to one of the allowed values"
	case "const":
		return map[string]any{"allowedValue": value}, "must be equal to constant"
	case "minimum":
		return limitParams(">=", value), "must be >= " + number(value)
	case "maximum":
		return limitParams("<=", value), "must be <= " + number(value)
	case "exclusiveMinimum":
		return limitParams(">", value), "must be > " + number(value)
	case "exclusiveMaximum":
		return limitParams("<", value), "must be < " + number(value)
	case "minLength":
		return map[string]any{"limit": value}, fmt.Sprintf("must NOT have fewer than %s characters", number(value))
	case "maxLength":
		return map[string]any{"limit": value}, fmt.Sprintf("must NOT have more than %s characters", number(value))
	case "minItems":
		return map[string]any{"limit": value}, fmt.Sprintf("must NOT have fewer than %s items", number(value))
	case "maxItems":
		return map[string]any{"limit": value}, fmt.Sprintf("must NOT have more than %s items", number(value))
	case "minProperties":
		return map[string]any{"limit": value}, fmt.Sprintf("must NOT have fewer than %s properties", number(value))
	case "maxProperties":
		return map[string]any{"limit": value}, fmt.Sprintf("must NOT have more than %s properties", number(value))
	case "uniqueItems":
		return map[string]any{}, "must NOT have duplicate items"
	case "pattern":
		return map[string]any{"pattern": value}, fmt.Sprintf("must match pattern %q", value)
	case "format":
		return map[string]any{"format": value}, fmt.Sprintf("must match format %q", value)
	case "multipleOf":
		return map[string]any{"multipleOf": value}, "must be multiple of " + number(value)
	}
	return map[string]any{}, fallback
}

func limitParams(comparison string, value any) map[string]any {
	return map[string]any{"comparison": comparison, "limit": value}
}

func typeNames(value any) string {
	switch t := value.(type) {
	case string:
		return t
	case []any:
		names := make([]string, 0, len(t))
		for _, v := range t {
			names = append(names, fmt.Sprint(v))
		}
		return strings.Join(names, ",")
	}
	return fmt.Sprint(value)
}

func number(value any) string {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

// additionalNames lists instance keys the object schema does not admit
// through properties or patternProperties.
func additionalNames(schemaObj, instance any) []string {
	obj, ok := instance.(map[string]any)
	if !ok {
		return nil
	}
	sch, _ := schemaObj.(map[string]any)
	props, _ := sch["properties"].(map[string]any)
	patterns, _ := sch["patternProperties"].(map[string]any)

	var compiled []*regexp.Regexp
	for p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}

	var names []string
	for key := range obj {
		if _, ok := props[key]; ok {
			continue
		}
		matched := false
		for _, re := range compiled {
			if re.MatchString(key) {
				matched = true
				break
			}
		}
		if !matched {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names
}

// resolvePointer walks a JSON pointer ("/a/b/0") through decoded JSON.
// Tokens may be percent-escaped as in library keyword locations.
func resolvePointer(doc any, pointer string) (any, bool) {
	if pointer == "" {
		return doc, true
	}
	cur := doc
	for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if unescaped, err := url.PathUnescape(tok); err == nil {
			tok = unescaped
		}
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[tok]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func parentPointer(pointer string) string {
	if i := strings.LastIndexByte(pointer, '/'); i >= 0 {
		return pointer[:i]
	}
	return ""
}

func lastSegment(pointer string) string {
	if i := strings.LastIndexByte(pointer, '/'); i >= 0 {
		return pointer[i+1:]
	}
	return pointer
}
