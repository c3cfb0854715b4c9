package config

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

func TestDefault_MatchesSchema(t *testing.T) {
	reg, err := schema.NewCoreRegistry()
	if err != nil {
		t.Fatalf("NewCoreRegistry() error = %v", err)
	}
	defaults, err := schema.NewDefaultsCache(reg).For(schema.CoreID, schema.GroupServer)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}

	got, err := Resolve(Group(schema.GroupServer, defaults))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := Default()

	if got.Server.Address != want.Server.Address {
		t.Errorf("Address = %q, want %q", got.Server.Address, want.Server.Address)
	}
	if got.Server.Port != want.Server.Port {
		t.Errorf("Port = %d, want %d", got.Server.Port, want.Server.Port)
	}
	if got.Server.BasePath != want.Server.BasePath {
		t.Errorf("BasePath = %q, want %q", got.Server.BasePath, want.Server.BasePath)
	}
	if got.Server.KeepAliveTimeout != want.Server.KeepAliveTimeout {
		t.Errorf("KeepAliveTimeout = %d, want %d", got.Server.KeepAliveTimeout, want.Server.KeepAliveTimeout)
	}
	if got.Server.LogLevel != want.Server.LogLevel {
		t.Errorf("LogLevel = %q, want %q", got.Server.LogLevel, want.Server.LogLevel)
	}
	if got.Server.AllowCors || got.Server.RelaxedSecurityEnabled || got.Server.StrictCaps {
		t.Error("boolean defaults should be false")
	}
	if len(got.Server.UseDrivers) != 0 || len(got.Server.AllowInsecure) != 0 {
		t.Errorf("list defaults = %v / %v, want empty", got.Server.UseDrivers, got.Server.AllowInsecure)
	}
}

func TestResolve_Precedence(t *testing.T) {
	defaults := Group("server", map[string]any{"port": 4723, "allowCors": false, "loglevel": "debug"})
	file := map[string]any{
		"server": map[string]any{"port": float64(4724), "useDrivers": []any{"uiautomator2"}},
		"driver": map[string]any{"uiautomator2": map[string]any{"adbPort": float64(5037)}},
	}
	env := Group("server", map[string]any{"loglevel": "info"})
	flags := Nest(map[string]any{
		"server.allowCors":            true,
		"driver.uiautomator2.adbPort": 5038,
	})

	cfg, err := Resolve(defaults, file, env, flags)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Port != 4724 {
		t.Errorf("Port = %d, want 4724", cfg.Server.Port)
	}
	if !cfg.Server.AllowCors {
		t.Error("AllowCors = false, want flag value true")
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if !reflect.DeepEqual(cfg.Server.UseDrivers, []string{"uiautomator2"}) {
		t.Errorf("UseDrivers = %v", cfg.Server.UseDrivers)
	}
	if got := cfg.Driver["uiautomator2"]["adbPort"]; got != 5038 {
		t.Errorf("driver.uiautomator2.adbPort = %v, want 5038", got)
	}

	// Layers are not modified by the merge.
	if file["server"].(map[string]any)["port"] != float64(4724) {
		t.Error("file layer was modified")
	}
	if _, ok := file["server"].(map[string]any)["allowCors"]; ok {
		t.Error("file layer received a key from a later layer")
	}
}

func TestResolve_Empty(t *testing.T) {
	cfg, err := Resolve(nil, map[string]any{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Port != 0 || cfg.Driver != nil {
		t.Errorf("Resolve() = %+v, want zero config", cfg)
	}
}

func TestNest(t *testing.T) {
	got := Nest(map[string]any{"server.port": 1, "server.address": "::", "plugin.images.x": true})
	want := map[string]any{
		"server": map[string]any{"port": 1, "address": "::"},
		"plugin": map[string]any{"images": map[string]any{"x": true}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Nest() = %v, want %v", got, want)
	}
	if Group("server", nil) != nil {
		t.Error("Group() of no values should be nil")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerSection)
		wantErr bool
	}{
		{"defaults", func(*ServerSection) {}, false},
		{"cert and key", func(s *ServerSection) { s.SSLCertPath, s.SSLKeyPath = "c.pem", "k.pem" }, false},
		{"cert without key", func(s *ServerSection) { s.SSLCertPath = "c.pem" }, true},
		{"callback port alone", func(s *ServerSection) { s.CallbackPort = 8080 }, true},
		{"callback pair", func(s *ServerSection) { s.CallbackPort, s.CallbackAddress = 8080, "10.0.0.2" }, false},
		{"allowed and denied", func(s *ServerSection) {
			s.AllowInsecure = []string{"adb_shell", "get_server_logs"}
			s.DenyInsecure = []string{"get_server_logs"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg.Server)
			err := Verify(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrConfigInvalid) {
				t.Errorf("Verify() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Server.DefaultCapabilities = map[string]any{
		"platformName":             "Android",
		"appium:keystorePassword":  "hunter2-hunter2",
		"sauce:accessKey":          "abcd",
		"appium:newCommandTimeout": float64(60),
	}

	sanitized := Sanitize(cfg)

	if cfg.Server.DefaultCapabilities["appium:keystorePassword"] != "hunter2-hunter2" {
		t.Error("Sanitize() modified the original")
	}
	caps := sanitized.Server.DefaultCapabilities
	if caps["appium:keystorePassword"] != "hu***********r2" {
		t.Errorf("keystorePassword = %v", caps["appium:keystorePassword"])
	}
	if caps["sauce:accessKey"] != "****" {
		t.Errorf("accessKey = %v", caps["sauce:accessKey"])
	}
	if caps["platformName"] != "Android" || caps["appium:newCommandTimeout"] != float64(60) {
		t.Errorf("non-secret capabilities changed: %v", caps)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"abcdef", "ab**ef"},
		{"1234567890", "12******90"},
	}

	for _, tt := range tests {
		result := maskSecret(tt.input)
		if result != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestFlatten(t *testing.T) {
	cfg := Default()
	cfg.Server.UseDrivers = []string{"xcuitest"}
	cfg.Driver = map[string]map[string]any{"xcuitest": {"wdaLocalPort": 8100}}

	flat, err := Flatten(cfg)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	tests := []struct {
		key  string
		want any
	}{
		{"server.port", float64(DefaultPort)},
		{"server.address", DefaultAddress},
		{"server.allowCors", false},
		{"server.useDrivers", []any{"xcuitest"}},
		{"driver.xcuitest.wdaLocalPort", float64(8100)},
	}
	for _, tt := range tests {
		if got := flat[tt.key]; !reflect.DeepEqual(got, tt.want) {
			t.Errorf("flat[%q] = %#v, want %#v", tt.key, got, tt.want)
		}
	}
	if _, ok := flat["plugin"]; ok {
		t.Error("empty plugin section should be omitted")
	}
}
