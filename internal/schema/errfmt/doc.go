// Package errfmt renders validation errors.
//
// Errors are grouped by the schema they originate from before rendering,
// since property paths and allowed values only make sense relative to
// their own schema. Plain mode yields one line per error plus a flat list
// of items; pretty mode yields one styled block per schema with code
// frames taken from the source text when it is available.
package errfmt
