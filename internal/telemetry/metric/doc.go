// Package metric provides Prometheus metrics for autoserve.
//
// A Registry owns its own prometheus.Registry and implements the Recorder
// interfaces of the schema, validate, confloader and extension packages.
// The CLI writes the collected metrics in the text exposition format when
// --metrics-file is set, for node_exporter's textfile collector.
package metric
