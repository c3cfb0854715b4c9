package cliargs

import (
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/yndnr/autoserve/internal/core/domain"
)

// Built-in transformer names.
const (
	TransformerCSV  = "csv"
	TransformerJSON = "json"
)

// ParseCSV accepts a comma-separated list, or a path to a file holding
// values separated by commas or newlines. Blank items are dropped.
func ParseCSV(raw string) (any, error) {
	text := raw
	if isFile(raw) {
		data, err := os.ReadFile(raw)
		if err != nil {
			return nil, domain.ErrArgumentInvalid.WithDetailsf("read %s", raw).WithCause(err)
		}
		text = string(data)
	}

	items := []any{}
	for _, line := range strings.Split(text, "\n") {
		for _, item := range strings.Split(line, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items, nil
}

// ParseJSON accepts a JSON document, or a path to a file holding one.
func ParseJSON(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return parseJSONValue(trimmed)
	}

	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, domain.ErrArgumentInvalid.
			WithDetailsf("%q is neither valid JSON nor a readable file", raw).
			WithCause(err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, domain.ErrArgumentInvalid.WithDetailsf("%s does not hold valid JSON", raw).WithCause(err)
	}
	return v, nil
}

func isFile(path string) bool {
	if path == "" || strings.ContainsAny(path, ",\n") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
