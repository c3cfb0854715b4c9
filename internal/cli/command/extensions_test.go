package command

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/yndnr/autoserve/internal/extension"
)

func TestExtensionsCheck_NoManifest(t *testing.T) {
	home := t.TempDir()
	res := runApp(t, home, "extensions", "check")
	if res.err != nil {
		t.Fatalf("Run() error = %v", res.err)
	}
	want := "No extension manifest at " + filepath.Join(home, extension.ManifestFile) + "\n"
	if res.stdout != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}
}

func TestExtensionsCheck_OK(t *testing.T) {
	home := newHome(t)
	res := runApp(t, home, "ext", "check")
	if res.err != nil {
		t.Fatalf("Run() error = %v", res.err)
	}
	if !strings.HasSuffix(res.stdout, ": 1 extensions OK\n") {
		t.Errorf("stdout = %q, want the OK summary", res.stdout)
	}
}

func TestExtensionsCheck_Problems(t *testing.T) {
	home := newHome(t)
	writeFile(t, filepath.Join(home, extension.ManifestFile), testManifest+`
  broken:
    platformNames: []
    installSpec: drivers/broken
    pkgName: autoserve-broken-driver
`)

	res := runApp(t, home, "extensions", "check")
	if !errors.Is(res.err, ErrProblems) {
		t.Fatalf("Run() error = %v, want ErrProblems", res.err)
	}
	for _, want := range []string{"broken", extension.MsgEmptyPlatformNames, extension.MsgAutomationName} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "uiautomator2") {
		t.Error("a driver without problems was listed")
	}

	res = runApp(t, home, "-o", "json", "extensions", "check")
	if !errors.Is(res.err, ErrProblems) {
		t.Fatalf("Run(json) error = %v, want ErrProblems", res.err)
	}
	var report struct {
		Results []struct {
			Name     string `json:"name"`
			Problems []any  `json:"problems"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(report.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(report.Results))
	}
}
