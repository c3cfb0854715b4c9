package schema

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"
)

//go:embed core.schema.json
var coreSchema []byte

// Core config groups.
const (
	GroupServer = "server"
	GroupDriver = "driver"
	GroupPlugin = "plugin"
)

// CoreSchema returns a fresh copy of the core configuration schema.
func CoreSchema() (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(coreSchema, &raw); err != nil {
		return nil, fmt.Errorf("decode core schema: %w", err)
	}
	return raw, nil
}
