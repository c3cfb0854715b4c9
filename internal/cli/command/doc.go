// Package command provides the autoserve CLI commands.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - bootstrap.go: AUTOSERVE_* settings read before flags are parsed
//   - root.go: App, global flags and the per-invocation runtime
//   - runtime.go: schema registry, loader and extension wiring
//   - config.go: config check/show/defaults/args
//   - extensions.go: extensions check
//
// Commands parse flags, call the schema and config packages, and write
// results through the output formatters.
package command
