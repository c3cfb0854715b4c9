package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/autoserve/internal/cli/output"
)

// ExtensionsCommand returns the extensions subcommand group.
func ExtensionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "extensions",
		Aliases: []string{"ext"},
		Usage:   "Extension manifest management",
		Subcommands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Check the installed extensions listed in <home>/extensions.yaml",
				Action: extensionsCheck,
			},
		},
	}
}

// problemRow is one manifest problem as listed by 'extensions check'.
type problemRow struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Problem string `json:"problem"`
	Value   any    `json:"value"`
}

func extensionsCheck(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	rt := RuntimeFrom(c)
	w := c.App.Writer

	if rt.Manifest == nil {
		fmt.Fprintf(w, "No extension manifest at %s\n", rt.ManifestPath())
		return nil
	}

	report := rt.Report
	if flags.Output != output.FormatTable {
		if err := render(c, report); err != nil {
			return err
		}
	} else if report.Problems() == 0 {
		fmt.Fprintf(w, "%s: %d extensions OK\n", rt.Manifest.Path, len(report.Results))
	} else {
		var rows []problemRow
		for _, r := range report.Results {
			for _, p := range r.Problems {
				rows = append(rows, problemRow{Kind: string(r.Kind), Name: r.Name, Problem: p.Err, Value: p.Val})
			}
		}
		if err := render(c, rows); err != nil {
			return err
		}
	}

	if report.Problems() > 0 {
		commandLogger(c).Debug("extension manifest problems", "count", report.Problems())
		return ErrProblems
	}
	return nil
}
