package config

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/v2"

	"github.com/yndnr/autoserve/internal/infra/confloader"
)

// Delim separates the segments of a config path.
const Delim = "."

// Merge layers normalized config documents, later layers taking
// precedence. Nested objects are merged key by key; lists are replaced.
func Merge(layers ...map[string]any) (*koanf.Koanf, error) {
	k := koanf.New(Delim)
	for i, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		if err := k.Load(confloader.MapProvider(layer), nil); err != nil {
			return nil, fmt.Errorf("merge layer %d: %w", i, err)
		}
	}
	return k, nil
}

// Resolve merges layers and decodes the result.
func Resolve(layers ...map[string]any) (*ServerConfig, error) {
	k, err := Merge(layers...)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Nest turns dotted keys ("server.port") into a nested document.
func Nest(flat map[string]any) map[string]any {
	return maps.Unflatten(flat, Delim)
}

// Group wraps values as the named group of a config document.
func Group(name string, values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	return Nest(map[string]any{name: values})
}

// Flatten returns cfg as dotted keys ("server.port") for display.
func Flatten(cfg *ServerConfig) (map[string]any, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	flat, _ := maps.Flatten(doc, nil, Delim)
	return flat, nil
}
