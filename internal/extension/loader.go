package extension

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/autoserve/internal/core/domain"
)

// SchemaLoader loads the schema document an extension points at.
type SchemaLoader interface {
	LoadSchemaAt(path string) (map[string]any, error)
}

// AllowedSchemaExtensions are the schema file extensions an extension may
// reference.
var AllowedSchemaExtensions = []string{".json", ".yaml", ".yml", ".lua"}

// DefaultScriptTimeout bounds the run time of a Lua schema script.
const DefaultScriptTimeout = 2 * time.Second

// FileLoader loads JSON and YAML schema files, and Lua scripts that return
// the schema as a table.
type FileLoader struct {
	// ScriptTimeout bounds a Lua script. Zero means DefaultScriptTimeout.
	ScriptTimeout time.Duration
}

// LoadSchemaAt implements SchemaLoader. Failures wrap
// domain.ErrExtensionSchemaLoad.
func (f FileLoader) LoadSchemaAt(path string) (map[string]any, error) {
	timeout := f.ScriptTimeout
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	doc, err := loadSchemaFile(path, timeout)
	if err != nil {
		return nil, domain.ErrExtensionSchemaLoad.WithCause(err).WithDetails(err.Error())
	}
	return doc, nil
}

func loadSchemaFile(path string, timeout time.Duration) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return requireObject(doc)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return requireObject(doc)
	case ".lua":
		return loadLua(path, timeout)
	}
	return nil, fmt.Errorf("unsupported schema file %s", filepath.Base(path))
}

func requireObject(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return nil, fmt.Errorf("schema file holds no object")
	}
	return doc, nil
}

// sandboxRemoved are base library globals that load other chunks.
var sandboxRemoved = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// loadLua runs a schema script with only the base, table, string and math
// libraries opened, and without the base functions that load other chunks.
// The script must return one table before timeout elapses.
func loadLua(path string, timeout time.Duration) (map[string]any, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range sandboxRemoved {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoFile(path); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("schema script did not finish within %s", timeout)
		}
		return nil, err
	}
	if L.GetTop() == 0 {
		return nil, fmt.Errorf("schema script returned nothing")
	}
	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("schema script returned %s, want table", L.Get(-1).Type())
	}
	doc, ok := tableToGo(tbl, make(map[*lua.LTable]bool)).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema script returned a list, want table with keys")
	}
	return doc, nil
}

func luaToGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	}
	return nil
}

// tableToGo converts a sequence (keys 1..n) to a list and anything else to
// an object. An empty table is an empty object.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	maxN, count, sequence := 0, 0, true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		n, ok := k.(lua.LNumber)
		if !ok || float64(n) != float64(int(n)) || int(n) < 1 {
			sequence = false
			return
		}
		if int(n) > maxN {
			maxN = int(n)
		}
	})

	if sequence && maxN > 0 && count == maxN {
		list := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			list[i-1] = luaToGo(t.RawGetInt(i), visited)
		}
		return list
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = luaToGo(v, visited)
	})
	return m
}
