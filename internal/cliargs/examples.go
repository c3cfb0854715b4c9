package cliargs

import (
	"fmt"

	"github.com/yndnr/autoserve/internal/schema"
)

// ExampleName returns the extension name used in help text for kind.
func ExampleName(kind schema.Kind) string {
	switch kind {
	case schema.KindDriver:
		return "uiautomator2"
	case schema.KindPlugin:
		return "images"
	}
	return ""
}

// SelectionHelp is the help text of the flag that selects which installed
// extensions of kind are activated.
func SelectionHelp(kind schema.Kind) string {
	return fmt.Sprintf(
		"Comma-separated list of installed %s names to activate, or a file with one name per line (example: %s)",
		kind, ExampleName(kind))
}

// DefaultOverrides returns the overrides the autoserve CLI applies on top
// of the core schema.
func DefaultOverrides() map[string]Override {
	return map[string]Override{
		"use-drivers": func(s *ArgumentSpec) { s.Help = SelectionHelp(schema.KindDriver) },
		"use-plugins": func(s *ArgumentSpec) { s.Help = SelectionHelp(schema.KindPlugin) },
	}
}
