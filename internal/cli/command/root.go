package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/autoserve/internal/cli/output"
	"github.com/yndnr/autoserve/internal/infra/buildinfo"
	"github.com/yndnr/autoserve/internal/telemetry/logger"
	"github.com/yndnr/autoserve/internal/telemetry/metric"
)

const runtimeKey = "runtime"

// App creates the CLI application. rt is the runtime of boot.Home; it
// supplies the projected server flags of 'config show' and is rebuilt in
// Before when --home names another home.
func App(boot Bootstrap, rt *Runtime) *cli.App {
	app := &cli.App{
		Name:                 "autoserve",
		Usage:                "Check and resolve automation server configuration",
		Version:              buildinfo.String(),
		Flags:                globalFlags(boot),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			ConfigCommand(rt),
			ExtensionsCommand(),
		},
		Metadata: map[string]any{runtimeKey: rt},
		Before:   before,
		After:    after,
		// Errors are reported by the caller of Run.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app
}

// globalFlags returns the global CLI flags, seeded from the environment.
func globalFlags(boot Bootstrap) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path (default: search from the working directory)",
			Value:   boot.Config,
		},
		&cli.StringFlag{
			Name:  "home",
			Usage: "Extension home holding extensions.yaml",
			Value: boot.Home,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: boot.Log.Level,
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
			Value: boot.Log.Format,
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write metrics in the Prometheus text format to this file on exit",
			Value: boot.MetricsFile,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config string
	Home   string

	Output output.Format
	Wide   bool

	LogLevel    string
	LogFormat   string
	MetricsFile string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		Config:      c.String("config"),
		Home:        c.String("home"),
		Output:      format,
		Wide:        c.Bool("wide"),
		LogLevel:    c.String("log-level"),
		LogFormat:   c.String("log-format"),
		MetricsFile: c.String("metrics-file"),
	}, nil
}

func before(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  flags.LogLevel,
		Format: flags.LogFormat,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)
	c.Context = logger.WithRunID(logger.WithLogger(c.Context, log), ulid.Make().String())

	rt := RuntimeFrom(c)
	if rt == nil || rt.Home != flags.Home {
		var metrics *metric.Registry
		if rt != nil {
			metrics = rt.Metrics
		}
		if rt, err = NewRuntime(flags.Home, log, metrics); err != nil {
			return err
		}
		c.App.Metadata[runtimeKey] = rt
	}
	return nil
}

func after(c *cli.Context) error {
	path := c.String("metrics-file")
	rt := RuntimeFrom(c)
	if path == "" || rt == nil || rt.Metrics == nil {
		return nil
	}
	if err := rt.Metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// RuntimeFrom retrieves the runtime from context.
func RuntimeFrom(c *cli.Context) *Runtime {
	if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return rt
	}
	return nil
}

// commandLogger returns the invocation logger tagged with the running
// command.
func commandLogger(c *cli.Context) logger.Logger {
	return logger.L(logger.WithCommand(c.Context, c.Command.FullName()))
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// ErrProblems is returned when a check finds problems. The problems have
// already been written to the command output.
var ErrProblems = errors.New("problems found")

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	if errors.Is(err, ErrProblems) {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
