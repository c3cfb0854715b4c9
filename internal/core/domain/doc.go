// Package domain defines the shared error vocabulary for autoserve.
//
// Errors carry a stable code (AS-<AREA>-<NNNN>) that is part of the printed
// message; callers match them with errors.Is:
//
//   - SCHM: schema registration and lookup
//   - CONF: config file discovery, parsing and argument conversion
//   - EXT: extension manifests and their schemas
package domain
