package command

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/yndnr/autoserve/internal/telemetry/logger"
)

// EnvPrefix prefixes the bootstrap variables (AUTOSERVE_HOME, ...).
const EnvPrefix = "AUTOSERVE_"

// Bootstrap holds the settings read from the environment before flags are
// parsed. They seed the defaults of the global flags.
type Bootstrap struct {
	// Home is the extension home holding extensions.yaml.
	Home string `env:"HOME"`
	// Config is an explicit config file path.
	Config string `env:"CONFIG"`
	// MetricsFile receives the metrics of the invocation.
	MetricsFile string `env:"METRICS_FILE"`

	Log logger.Config
}

// LoadBootstrap parses the AUTOSERVE_* variables.
func LoadBootstrap() (Bootstrap, error) {
	b := Bootstrap{Log: logger.DefaultConfig()}
	if err := env.ParseWithOptions(&b, env.Options{Prefix: EnvPrefix}); err != nil {
		return b, fmt.Errorf("parse env: %w", err)
	}
	if b.Home == "" {
		b.Home = DefaultHome()
	}
	return b, nil
}

// DefaultHome is ~/.autoserve, or .autoserve in the working directory
// when there is no user home.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autoserve"
	}
	return filepath.Join(home, ".autoserve")
}
