package extension

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/schema"
)

const manifestYAML = `
drivers:
  xcuitest:
    automationName: XCUITest
    platformNames: [iOS, tvOS]
    installSpec: drivers/xcuitest
    pkgName: autoserve-xcuitest-driver
  uiautomator2:
    automationName: UiAutomator2
    platformNames: [Android]
    schema: schema.json
    installSpec: /opt/uia2
    pkgName: autoserve-uiautomator2-driver
plugins:
  images:
    installSpec: plugins/images
    pkgName: autoserve-images-plugin
`

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}

	var names []string
	for _, e := range m.Entries() {
		names = append(names, string(e.Kind)+"/"+e.Name)
	}
	want := []string{"driver/xcuitest", "driver/uiautomator2", "plugin/images"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("entry order = %v, want %v", names, want)
	}

	xcui := m.Drivers[0]
	if xcui.InstallSpec != filepath.Join(dir, "drivers", "xcuitest") {
		t.Errorf("InstallSpec = %q, want it resolved against the manifest", xcui.InstallSpec)
	}
	if !reflect.DeepEqual(xcui.PlatformNames, []any{"iOS", "tvOS"}) {
		t.Errorf("PlatformNames = %#v", xcui.PlatformNames)
	}
	if m.Drivers[1].InstallSpec != "/opt/uia2" {
		t.Errorf("absolute InstallSpec changed to %q", m.Drivers[1].InstallSpec)
	}
	if m.Plugins[0].Kind != schema.KindPlugin {
		t.Errorf("plugin Kind = %q", m.Plugins[0].Kind)
	}
}

func TestReadManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "drivers: [\n"},
		{"drivers not a mapping", "drivers:\n  - xcuitest\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "m.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadManifest(path); !errors.Is(err, domain.ErrManifestInvalid) {
				t.Errorf("ReadManifest() error = %v, want ErrManifestInvalid", err)
			}
		})
	}

	if _, err := ReadManifest(filepath.Join(dir, "missing.yaml")); !errors.Is(err, domain.ErrManifestInvalid) {
		t.Errorf("ReadManifest(missing) error = %v, want ErrManifestInvalid", err)
	}
}

func TestReadManifest_EmptySections(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	if err := os.WriteFile(path, []byte("drivers:\nplugins: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(m.Entries()) != 0 {
		t.Errorf("Entries() = %v, want none", m.Entries())
	}
}
