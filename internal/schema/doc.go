// Package schema holds the schema catalog that drives config validation,
// key normalization and CLI argument projection.
//
// A Registry is seeded with the embedded core schema and grows as
// extensions contribute their own schemas. Extension schemas are mounted
// below driver.<name> or plugin.<name> of the core schema so that one
// validation run covers both.
//
// Property nodes may carry CLI metadata next to the standard keywords:
//
//   - cliAliases: extra flag spellings
//   - cliDest: destination name the value is delivered under
//   - cliIgnored: never projected to a flag
//   - cliTransformer: named value transformer ("csv", "json")
package schema
