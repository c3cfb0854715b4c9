package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yndnr/autoserve/internal/infra/buildinfo"
)

const namespace = "autoserve"

// Registry holds all application metrics. A nil *Registry records nothing.
type Registry struct {
	registry *prometheus.Registry

	buildInfo        *prometheus.GaugeVec
	schemas          prometheus.Gauge
	validationErrors *prometheus.CounterVec
	configLoads      *prometheus.CounterVec
	manifestProblems *prometheus.CounterVec
}

// NewRegistry creates a registry with the autoserve metrics and the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information, constant 1.",
		}, []string{"version", "commit", "goversion"}),
		schemas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schemas_registered",
			Help:      "Number of schemas in the schema registry.",
		}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Validation errors reported, by originating schema.",
		}, []string{"schema"}),
		configLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_loads_total",
			Help:      "Config file loads, by result.",
		}, []string{"result"}),
		manifestProblems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_problems_total",
			Help:      "Extension manifest problems, by extension kind.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.buildInfo,
		r.schemas,
		r.validationErrors,
		r.configLoads,
		r.manifestProblems,
	)

	bi := buildinfo.Get()
	r.buildInfo.WithLabelValues(bi.Version, bi.Commit, bi.GoVersion).Set(1)

	return r
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// SchemasRegistered implements schema.Recorder.
func (r *Registry) SchemasRegistered(total int) {
	if r == nil {
		return
	}
	r.schemas.Set(float64(total))
}

// ValidationErrors implements validate.Recorder.
func (r *Registry) ValidationErrors(schemaID string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.validationErrors.WithLabelValues(schemaID).Add(float64(n))
}

// ConfigLoaded implements confloader.Recorder.
func (r *Registry) ConfigLoaded(result string) {
	if r == nil {
		return
	}
	r.configLoads.WithLabelValues(result).Inc()
}

// ManifestProblems implements extension.Recorder.
func (r *Registry) ManifestProblems(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.manifestProblems.WithLabelValues(kind).Add(float64(n))
}
