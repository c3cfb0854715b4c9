// Package validate applies registered schemas to config values.
//
// All violations are reported in one pass. Each ValidationError carries
// the id of the schema its keyword belongs to, so errors from the core
// schema and from mounted extension schemas can be told apart after a
// single run over a composite document.
package validate
