package extension

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/autoserve/internal/core/domain"
)

func TestFileLoader_LoadSchemaAt(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"s.json": `{"type": "object", "properties": {"adb-port": {"type": "integer", "default": 5037}}}`,
		"s.yaml": "type: object\nproperties:\n  adb-port:\n    type: integer\n    default: 5037\n",
		"s.lua": `
local port = { type = "integer", default = 5000 + 37 }
return { type = "object", properties = { ["adb-port"] = port } }
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			doc, err := FileLoader{}.LoadSchemaAt(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("LoadSchemaAt() error = %v", err)
			}
			if doc["type"] != "object" {
				t.Errorf("type = %v, want object", doc["type"])
			}
			props, _ := doc["properties"].(map[string]any)
			port, _ := props["adb-port"].(map[string]any)
			if port["type"] != "integer" {
				t.Errorf("adb-port = %#v", port)
			}
		})
	}
}

func TestFileLoader_LuaLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.lua")
	script := `return { type = "object", required = { "a", "b" }, properties = {} }`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := FileLoader{}.LoadSchemaAt(path)
	if err != nil {
		t.Fatalf("LoadSchemaAt() error = %v", err)
	}
	if !reflect.DeepEqual(doc["required"], []any{"a", "b"}) {
		t.Errorf("required = %#v", doc["required"])
	}
	if !reflect.DeepEqual(doc["properties"], map[string]any{}) {
		t.Errorf("properties = %#v, want empty object", doc["properties"])
	}
}

func TestFileLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bad.json":    `{"type":`,
		"list.json":   `[1, 2]`,
		"number.lua":  `return 42`,
		"nothing.lua": `local x = 1`,
		"os.lua":      `os.exit(1)`,
		"list.lua":    `return { 1, 2 }`,
		"dofile.lua":  `return dofile("s.json")`,
		"load.lua":    `return loadstring("return {}")()`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	names := []string{"missing.json", "schema.txt"}
	for name := range files {
		names = append(names, name)
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := (FileLoader{}).LoadSchemaAt(filepath.Join(dir, name))
			if !errors.Is(err, domain.ErrExtensionSchemaLoad) {
				t.Errorf("LoadSchemaAt() error = %v, want ErrExtensionSchemaLoad", err)
			}
		})
	}
}

func TestFileLoader_ScriptTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.lua")
	if err := os.WriteFile(path, []byte("while true do end\nreturn {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := FileLoader{ScriptTimeout: 50 * time.Millisecond}.LoadSchemaAt(path)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrExtensionSchemaLoad) {
			t.Fatalf("LoadSchemaAt() error = %v, want ErrExtensionSchemaLoad", err)
		}
		if !strings.Contains(err.Error(), "did not finish within 50ms") {
			t.Errorf("LoadSchemaAt() error = %q, want a timeout", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("LoadSchemaAt() did not return")
	}
}
