package cliargs

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

func newProjector(t *testing.T) (*Projector, *schema.Registry) {
	t.Helper()
	reg, err := schema.NewCoreRegistry()
	if err != nil {
		t.Fatalf("NewCoreRegistry() error = %v", err)
	}
	ext := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"adb-port": map[string]any{
				"type":        "integer",
				"default":     5037,
				"description": "ADB server port",
				"cliAliases":  []any{"ap"},
			},
			"chromedriver-executable": map[string]any{
				"type":    "string",
				"cliDest": "chromedriverExecutable",
			},
			"internal-only": map[string]any{
				"type":       "string",
				"cliIgnored": true,
			},
		},
	}
	if _, err := reg.Register(ext, "uia2"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Mount(schema.KindDriver, "uiautomator2", "uia2"); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return NewProjector(reg), reg
}

func byName(args []Argument) map[string]Argument {
	m := make(map[string]Argument, len(args))
	for _, a := range args {
		m[a.Spec.Name] = a
	}
	return m
}

func TestAliasFlag(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"g", "-g"},
		{"pa", "-pa"},
		{"home", "--home"},
		{"abc", "--abc"},
	}
	for _, tt := range tests {
		if got := aliasFlag(tt.alias); got != tt.want {
			t.Errorf("aliasFlag(%q) = %q, want %q", tt.alias, got, tt.want)
		}
	}
}

func TestProject_Aliases(t *testing.T) {
	p, _ := newProjector(t)
	tests := []struct {
		aliases []any
		want    []string
	}{
		{[]any{"g"}, []string{"--log", "-g"}},
		{[]any{"home"}, []string{"--log", "--home"}},
		{[]any{"g", "home"}, []string{"--log", "-g", "--home"}},
	}
	for _, tt := range tests {
		node := schema.ParseNode("log", map[string]any{"type": "string", "cliAliases": tt.aliases})
		arg := p.Project("log", node, Options{})
		if !reflect.DeepEqual(arg.Flags, tt.want) {
			t.Errorf("Flags = %v, want %v", arg.Flags, tt.want)
		}
	}
}

func TestProjectGroup_Server(t *testing.T) {
	p, _ := newProjector(t)
	args, err := p.ProjectGroup(schema.GroupServer, Options{})
	if err != nil {
		t.Fatalf("ProjectGroup() error = %v", err)
	}
	m := byName(args)

	tests := []struct {
		name  string
		flags []string
		dest  string
		kind  ValueKind
	}{
		{"log", []string{"--log", "-g"}, "logFile", KindString},
		{"port", []string{"--port", "-p"}, "port", KindInt},
		{"allow-cors", []string{"--allow-cors"}, "allowCors", KindBool},
		{"base-path", []string{"--base-path", "-pa"}, "basePath", KindString},
		{"default-capabilities", []string{"--default-capabilities", "-dc"}, "defaultCapabilities", KindObject},
		{"use-drivers", []string{"--use-drivers"}, "useDrivers", KindList},
		{"log-filters", []string{"--log-filters"}, "logFilters", KindUnion},
		{"relaxed-security", []string{"--relaxed-security"}, "relaxedSecurityEnabled", KindBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := m[tt.name]
			if !ok {
				t.Fatalf("argument %q not projected", tt.name)
			}
			if !reflect.DeepEqual(a.Flags, tt.flags) {
				t.Errorf("Flags = %v, want %v", a.Flags, tt.flags)
			}
			if a.Spec.Dest != tt.dest {
				t.Errorf("Dest = %q, want %q", a.Spec.Dest, tt.dest)
			}
			if a.Spec.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", a.Spec.Kind, tt.kind)
			}
			if a.Spec.Key() != "server."+tt.dest {
				t.Errorf("Key() = %q", a.Spec.Key())
			}
			if a.Spec.Required {
				t.Error("Required = true, want false")
			}
			if a.Spec.HasDefault {
				t.Errorf("default %v assigned without AssignDefaults", a.Spec.Default)
			}
		})
	}

	if choices := m["log-level"].Spec.Choices; len(choices) != 20 || choices[0] != "info" {
		t.Errorf("log-level Choices = %v", choices)
	}
}

func TestProject_DefaultPolicy(t *testing.T) {
	p, _ := newProjector(t)
	args, err := p.ProjectGroup(schema.GroupServer, Options{AssignDefaults: true})
	if err != nil {
		t.Fatalf("ProjectGroup() error = %v", err)
	}
	m := byName(args)

	tests := []struct {
		name     string
		want     any
		declared bool
	}{
		{"allow-cors", false, true},
		{"port", float64(4723), true},
		{"use-drivers", []any{}, true},
		{"callback-port", nil, false},
		{"default-capabilities", map[string]any{}, false},
		{"log-filters", []any{}, false},
		{"nodeconfig", nil, false},
		{"callback-address", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := m[tt.name].Spec
			if !spec.HasDefault {
				t.Fatal("HasDefault = false with AssignDefaults")
			}
			if !reflect.DeepEqual(spec.Default, tt.want) {
				t.Errorf("Default = %#v, want %#v", spec.Default, tt.want)
			}
			if spec.DeclaredDefault != tt.declared {
				t.Errorf("DeclaredDefault = %v, want %v", spec.DeclaredDefault, tt.declared)
			}
		})
	}
}

func TestProjector_Defaults(t *testing.T) {
	p, _ := newProjector(t)
	got, err := p.Defaults(schema.GroupServer)
	if err != nil {
		t.Fatalf("Defaults() error = %v", err)
	}
	if got["port"] != float64(4723) {
		t.Errorf("port = %v, want 4723", got["port"])
	}
	if got["allowCors"] != false {
		t.Errorf("allowCors = %v, want false", got["allowCors"])
	}
	if _, ok := got["callbackAddress"]; ok {
		t.Error("callbackAddress has no declared default but was returned")
	}

	ext, err := p.Defaults("driver.uiautomator2")
	if err != nil {
		t.Fatalf("Defaults() extension error = %v", err)
	}
	if ext["adbPort"] != float64(5037) {
		t.Errorf("adbPort = %v, want 5037", ext["adbPort"])
	}
}

func TestProject_Overrides(t *testing.T) {
	p, _ := newProjector(t)
	var order []string
	opts := Options{
		AssignDefaults: true,
		Overrides: map[string]Override{
			"log-level": func(s *ArgumentSpec) {
				order = append(order, "name")
				s.Help = "by name"
			},
			"loglevel": func(s *ArgumentSpec) {
				order = append(order, "dest")
				s.Default = "info"
			},
			"port": func(s *ArgumentSpec) {
				s.Required = true
				s.Parse = func(string) (any, error) { return 1, nil }
			},
		},
	}
	m := byName(mustGroup(t, p, opts))

	ll := m["log-level"].Spec
	if ll.Help != "by name" || ll.Default != "info" {
		t.Errorf("log-level spec = %+v", ll)
	}
	if !reflect.DeepEqual(order, []string{"name", "dest"}) {
		t.Errorf("override order = %v", order)
	}
	port := m["port"].Spec
	if v, _ := port.Parse("x"); v != 1 {
		t.Error("override did not replace the parser")
	}
	if port.Required {
		t.Error("Required must stay false")
	}
}

func mustGroup(t *testing.T, p *Projector, opts Options) []Argument {
	t.Helper()
	args, err := p.ProjectGroup(schema.GroupServer, opts)
	if err != nil {
		t.Fatalf("ProjectGroup() error = %v", err)
	}
	return args
}

func TestProjectExtension(t *testing.T) {
	p, _ := newProjector(t)
	args, err := p.ProjectExtension(schema.KindDriver, "uiautomator2", "uia2", Options{})
	if err != nil {
		t.Fatalf("ProjectExtension() error = %v", err)
	}
	m := byName(args)
	if len(args) != 2 {
		t.Errorf("len(args) = %d, want 2 (ignored property skipped)", len(args))
	}

	adb := m["adb-port"]
	wantFlags := []string{"--driver-uiautomator2-adb-port", "--driver-uiautomator2-ap"}
	if !reflect.DeepEqual(adb.Flags, wantFlags) {
		t.Errorf("Flags = %v, want %v", adb.Flags, wantFlags)
	}
	if adb.Spec.Dest != "driver.uiautomator2.adbPort" || adb.Spec.Key() != adb.Spec.Dest {
		t.Errorf("Dest = %q, Key() = %q", adb.Spec.Dest, adb.Spec.Key())
	}
	if got := m["chromedriver-executable"].Spec.Dest; got != "driver.uiautomator2.chromedriverExecutable" {
		t.Errorf("Dest = %q", got)
	}

	if _, err := p.ProjectExtension(schema.KindPlugin, "images", "missing", Options{}); !errors.Is(err, domain.ErrSchemaNotFound) {
		t.Errorf("ProjectExtension() unknown schema error = %v", err)
	}
	if _, err := p.ProjectExtension(schema.Kind("theme"), "x", "uia2", Options{}); !errors.Is(err, domain.ErrSchemaInvalid) {
		t.Errorf("ProjectExtension() unknown kind error = %v", err)
	}
}

func TestCatalog(t *testing.T) {
	p, _ := newProjector(t)
	args, err := p.Catalog(Options{Overrides: DefaultOverrides()})
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	seen := make(map[string]bool)
	for _, a := range args {
		for _, f := range a.Flags {
			if seen[f] {
				t.Errorf("flag %s projected twice", f)
			}
			seen[f] = true
		}
	}
	if !seen["--port"] || !seen["--driver-uiautomator2-adb-port"] {
		t.Error("catalog misses core or extension flags")
	}
	if seen["--$schema"] {
		t.Error("ignored property projected")
	}
	for _, a := range args {
		if a.Spec.Name == "use-plugins" && !strings.Contains(a.Spec.Help, "images") {
			t.Errorf("use-plugins help = %q", a.Spec.Help)
		}
	}
}

func TestExampleName(t *testing.T) {
	tests := []struct {
		kind schema.Kind
		want string
	}{
		{schema.KindDriver, "uiautomator2"},
		{schema.KindPlugin, "images"},
		{schema.Kind("other"), ""},
	}
	for _, tt := range tests {
		if got := ExampleName(tt.kind); got != tt.want {
			t.Errorf("ExampleName(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}

	driver := SelectionHelp(schema.KindDriver)
	plugin := SelectionHelp(schema.KindPlugin)
	if !strings.Contains(driver, "uiautomator2") || strings.Contains(driver, "images") {
		t.Errorf("driver help = %q", driver)
	}
	if !strings.Contains(plugin, "images") || strings.Contains(plugin, "uiautomator2") {
		t.Errorf("plugin help = %q", plugin)
	}
}

func TestCoerceUnion(t *testing.T) {
	parse := coerceUnion([]string{"array", "string"})
	tests := []struct {
		raw  string
		want any
	}{
		{`[{"text":"a"}]`, []any{map[string]any{"text": "a"}}},
		{"/tmp/filters.json", "/tmp/filters.json"},
		{`{"not":"accepted"}`, `{"not":"accepted"}`},
	}
	for _, tt := range tests {
		got, err := parse(tt.raw)
		if err != nil {
			t.Fatalf("parse(%q) error = %v", tt.raw, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parse(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}

	custom := func(raw string) (any, error) { return "custom:" + raw, nil }
	p, _ := newProjector(t)
	m := byName(mustGroup(t, p, Options{CoerceUnion: custom}))
	if v, _ := m["nodeconfig"].Spec.Parse("x"); v != "custom:x" {
		t.Errorf("union parse = %v, want caller-supplied coercion", v)
	}
}
