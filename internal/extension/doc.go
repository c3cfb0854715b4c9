// Package extension reads the installed-extension manifest and checks its
// entries.
//
// Checking an entry never fails. Missing or malformed fields, duplicate
// automation names and unloadable schemas all become Problems, so one
// broken extension does not keep the rest of the manifest from being
// checked. A valid schema reference is loaded, registered under the
// package name and mounted below <kind>.<name> of the core schema.
package extension
