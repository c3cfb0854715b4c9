package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/autoserve/internal/telemetry/logger"
	"github.com/yndnr/autoserve/internal/telemetry/metric"
)

const testManifest = `
drivers:
  uiautomator2:
    automationName: UiAutomator2
    platformNames: [Android]
    schema: schema.json
    installSpec: drivers/uia2
    pkgName: autoserve-uiautomator2-driver
`

const testDriverSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "adb-port": {"type": "integer", "default": 5037, "description": "adb server port"},
    "skip-unlock": {"type": "boolean"}
  }
}`

// writeFile creates path with content, making parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// newHome returns an extension home with one installed driver.
func newHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	writeFile(t, filepath.Join(home, "extensions.yaml"), testManifest)
	writeFile(t, filepath.Join(home, "drivers", "uia2", "schema.json"), testDriverSchema)
	return home
}

type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs the CLI with args against home, the way main does.
func runApp(t *testing.T, home string, args ...string) result {
	t.Helper()
	rt, err := NewRuntime(home, logger.Discard(), metric.NewRegistry())
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	boot := Bootstrap{Home: home, Log: logger.Config{Level: "error", Format: "text"}}

	app := App(boot, rt)
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err = app.Run(append([]string{"autoserve"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
