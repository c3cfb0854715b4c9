package command

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/yndnr/autoserve/internal/cliargs"
	"github.com/yndnr/autoserve/internal/extension"
	"github.com/yndnr/autoserve/internal/infra/confloader"
	"github.com/yndnr/autoserve/internal/schema"
	"github.com/yndnr/autoserve/internal/schema/validate"
	"github.com/yndnr/autoserve/internal/telemetry/logger"
	"github.com/yndnr/autoserve/internal/telemetry/metric"
)

// Runtime is the schema catalog and the services built on it for one
// extension home.
type Runtime struct {
	Home    string
	Logger  logger.Logger
	Metrics *metric.Registry

	Registry   *schema.Registry
	Normalizer *schema.Normalizer
	Validator  *validate.Validator
	Projector  *cliargs.Projector
	Loader     *confloader.Loader
	Extensions *extension.Validator

	// Manifest is the extension manifest of Home, nil when there is none.
	Manifest *extension.Manifest
	// Report is the result of checking Manifest, which also registers and
	// mounts the extension schemas.
	Report extension.Report
}

// NewRuntime builds the core registry and registers the extensions listed
// in <home>/extensions.yaml. A missing manifest is not an error; an
// unreadable one is.
func NewRuntime(home string, log logger.Logger, metrics *metric.Registry, opts ...confloader.Option) (*Runtime, error) {
	if log == nil {
		log = logger.Default()
	}
	slogger := log.Slog()

	reg, err := schema.NewCoreRegistry(schema.WithLogger(slogger), schema.WithRecorder(metrics))
	if err != nil {
		return nil, err
	}
	val := validate.New(reg, validate.WithLogger(slogger), validate.WithRecorder(metrics))

	loaderOpts := []confloader.Option{
		confloader.WithLogger(slogger),
		confloader.WithRecorder(metrics),
		confloader.WithValidator(val),
	}
	rt := &Runtime{
		Home:       home,
		Logger:     log,
		Metrics:    metrics,
		Registry:   reg,
		Normalizer: schema.NewNormalizer(reg),
		Validator:  val,
		Projector:  cliargs.NewProjector(reg),
		Loader:     confloader.NewLoader(reg, append(loaderOpts, opts...)...),
		Extensions: extension.NewValidator(reg,
			extension.WithLogger(slogger),
			extension.WithRecorder(metrics),
		),
	}

	if err := rt.loadExtensions(); err != nil {
		return nil, err
	}
	return rt, nil
}

// ManifestPath is the extension manifest of the runtime's home.
func (rt *Runtime) ManifestPath() string {
	return filepath.Join(rt.Home, extension.ManifestFile)
}

func (rt *Runtime) loadExtensions() error {
	m, err := extension.ReadManifest(rt.ManifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		rt.Logger.Debug("no extension manifest", "path", rt.ManifestPath())
		return nil
	}
	if err != nil {
		return err
	}
	rt.Manifest = m
	rt.Report = rt.Extensions.CheckManifest(m)
	if n := rt.Report.Problems(); n > 0 {
		rt.Logger.Warn("extension manifest has problems; run 'autoserve extensions check'",
			"path", m.Path,
			"problems", n,
		)
	}
	return nil
}
