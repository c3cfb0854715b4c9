package errfmt

import (
	"strings"
	"testing"

	"github.com/yndnr/autoserve/internal/schema"
	"github.com/yndnr/autoserve/internal/schema/validate"
)

const sampleYAML = `server:
  port: notanumber
  log-level: inf
driver:
  uiautomator2:
    adb-port: nope
`

func setup(t *testing.T) (*schema.Registry, []validate.ValidationError) {
	t.Helper()
	reg, err := schema.NewCoreRegistry()
	if err != nil {
		t.Fatalf("NewCoreRegistry() error = %v", err)
	}
	ext := map[string]any{
		"title": "UiAutomator2 driver",
		"type":  "object",
		"properties": map[string]any{
			"adb-port": map[string]any{"type": "integer", "description": "ADB server port"},
		},
	}
	if _, err := reg.Register(ext, "uia2"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Mount(schema.KindDriver, "uiautomator2", "uia2"); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	value := map[string]any{
		"server": map[string]any{"port": "notanumber", "log-level": "inf"},
		"driver": map[string]any{"uiautomator2": map[string]any{"adb-port": "nope"}},
	}
	errs, err := validate.New(reg).Validate(value, schema.CoreID)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(errs) != 3 {
		t.Fatalf("len(errs) = %d, want 3: %v", len(errs), errs)
	}
	return reg, errs
}

func TestGroupBySchema(t *testing.T) {
	errs := []validate.ValidationError{
		{InstancePath: "/a", SchemaID: "one"},
		{InstancePath: "/b", SchemaID: "two"},
		{InstancePath: "/c", SchemaID: "one"},
	}
	groups := GroupBySchema(errs)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].SchemaID != "one" || len(groups[0].Errors) != 2 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[0].Errors[1].InstancePath != "/c" {
		t.Errorf("error order not preserved: %+v", groups[0].Errors)
	}
	if groups[1].SchemaID != "two" {
		t.Errorf("groups[1].SchemaID = %q, want two", groups[1].SchemaID)
	}
}

func TestFormat_Plain(t *testing.T) {
	reg, errs := setup(t)
	res := Format(errs, reg, Options{})

	if len(res.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(res.Items))
	}
	if !strings.Contains(res.Text, "[autoserve-config.json] /server/port must be integer\n") {
		t.Errorf("Text = %q", res.Text)
	}
	if !strings.Contains(res.Text, "[uia2] /driver/uiautomator2/adb-port must be integer\n") {
		t.Errorf("Text = %q", res.Text)
	}
	if strings.Count(res.Text, "\n") != 3 {
		t.Errorf("plain text should have one line per error: %q", res.Text)
	}
	for _, it := range res.Items {
		if it.SchemaID == "uia2" && it.SchemaPath != "#/properties/adb-port/type" {
			t.Errorf("extension SchemaPath = %q", it.SchemaPath)
		}
	}
}

func TestFormat_Pretty(t *testing.T) {
	reg, errs := setup(t)
	res := Format(errs, reg, Options{Pretty: true, Source: []byte(sampleYAML)})

	for _, want := range []string{
		"autoserve configuration (autoserve-config.json): 2 errors",
		"UiAutomator2 driver (uia2): 1 error",
		"/server/port must be integer",
		"Port to listen on",
		"ADB server port",
		"> 2 |   port: notanumber",
		"> 6 |     adb-port: nope",
		`Did you mean "info"?`,
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("pretty output missing %q:\n%s", want, res.Text)
		}
	}
	// errors are ordered by instance path, so /driver/... comes first
	if strings.Index(res.Text, "UiAutomator2 driver") > strings.Index(res.Text, "autoserve configuration") {
		t.Error("groups should render in order of first appearance")
	}
	if strings.Contains(res.Text, "\x1b[") {
		t.Error("colorless output contains ANSI escapes")
	}
}

func TestFormat_PrettyWithoutSource(t *testing.T) {
	reg, errs := setup(t)
	res := Format(errs, reg, Options{Pretty: true})
	if strings.Contains(res.Text, " | ") {
		t.Errorf("code frame rendered without source:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, "/server/log-level must be equal to one of the allowed values") {
		t.Errorf("pretty output:\n%s", res.Text)
	}
}

func TestSuggest(t *testing.T) {
	allowed := []any{"info", "warn", "error", "debug"}
	tests := []struct {
		got  string
		want string
	}{
		{"inf", "info"},
		{"dbug", "debug"},
		{"eror", "error"},
		{"completely-different", ""},
	}
	for _, tt := range tests {
		if got := suggest(tt.got, allowed); got != tt.want {
			t.Errorf("suggest(%q) = %q, want %q", tt.got, got, tt.want)
		}
	}
}

func TestSourceIndex_Locate(t *testing.T) {
	idx := indexSource([]byte(`{
  "server": {
    "port": "x",
    "bogus": 1
  }
}`))
	loc, ok := idx.locate("/server/port", "")
	if !ok || loc.line != 3 || loc.value != "x" {
		t.Errorf("locate(/server/port) = %+v, %v", loc, ok)
	}
	loc, ok = idx.locate("/server", "bogus")
	if !ok || loc.line != 4 {
		t.Errorf("locate(/server, bogus) = %+v, %v", loc, ok)
	}
	if _, ok := idx.locate("/server/missing", ""); ok {
		t.Error("locate() found a missing path")
	}
}
