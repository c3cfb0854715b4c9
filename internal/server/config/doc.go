// Package config provides the resolved autoserve server configuration.
//
//   - spec.go: ServerConfig, tagged with destination names
//   - default.go: default values, matching the core schema
//   - resolve.go: layered merge of normalized documents (koanf)
//   - verify.go: cross-option rules the schema cannot express
//   - sanitize.go: masking of secret capabilities for display
//
// Precedence is chosen by the caller through layer order. The autoserve CLI
// uses schema defaults, then the config file, then AUTOSERVE_SERVER_*
// variables, then explicit flags.
package config
