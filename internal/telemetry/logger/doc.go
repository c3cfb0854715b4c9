// Package logger provides structured logging for autoserve.
//
//   - logger.go: slog configuration (text or JSON) with a dynamic level
//   - context.go: context propagation of the logger, command and run id
//   - redact.go: masking of secret-looking attributes and URL passwords
//
// Components take a *slog.Logger through their WithLogger options; pass
// Logger.Slog() to share the configured handler.
package logger
