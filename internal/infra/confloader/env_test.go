package confloader

import (
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/knadh/koanf/v2"
)

func TestReadEnv(t *testing.T) {
	t.Setenv("AUTOSERVE_TEST_ALLOW_CORS", "true")
	t.Setenv("AUTOSERVE_TEST_PORT", "4725")
	t.Setenv("AUTOSERVE_TEST_UNKNOWN", "x")
	t.Setenv("AUTOSERVE_OTHER", "ignored")

	conv := func(key, raw string) (any, bool, error) {
		switch key {
		case "allow-cors":
			b, err := strconv.ParseBool(raw)
			return b, true, err
		case "port":
			n, err := strconv.Atoi(raw)
			return n, true, err
		}
		return nil, false, nil
	}

	got, err := ReadEnv("AUTOSERVE_TEST_", "server", conv)
	if err != nil {
		t.Fatalf("ReadEnv() error = %v", err)
	}
	want := map[string]any{"server": map[string]any{"allow-cors": true, "port": 4725}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadEnv() = %#v, want %#v", got, want)
	}

	raw, err := ReadEnv("AUTOSERVE_TEST_", "", nil)
	if err != nil {
		t.Fatalf("ReadEnv() error = %v", err)
	}
	if raw["unknown"] != "x" || raw["port"] != "4725" {
		t.Errorf("ReadEnv(nil) = %#v", raw)
	}
}

func TestReadEnv_ConversionError(t *testing.T) {
	t.Setenv("AUTOSERVE_TEST_PORT", "high")

	errBad := errors.New("bad value")
	_, err := ReadEnv("AUTOSERVE_TEST_", "server", func(key, raw string) (any, bool, error) {
		return nil, false, errBad
	})
	if !errors.Is(err, errBad) {
		t.Errorf("ReadEnv() error = %v, want %v", err, errBad)
	}
}

func TestMapProvider_DoesNotAlias(t *testing.T) {
	layer := map[string]any{"server": map[string]any{"port": 4723}}

	k := koanf.New(".")
	if err := k.Load(MapProvider(layer), nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := k.Load(MapProvider(map[string]any{"server": map[string]any{"port": 1}}), nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if k.Int("server.port") != 1 {
		t.Errorf("server.port = %d, want 1", k.Int("server.port"))
	}
	if got := layer["server"].(map[string]any)["port"]; got != 4723 {
		t.Errorf("layer mutated: port = %v, want 4723", got)
	}

	if _, err := MapProvider(layer).ReadBytes(); !errors.Is(err, ErrReadBytesNotSupported) {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
