package command

import (
	"context"
	"fmt"

	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/autoserve/internal/cli/output"
	"github.com/yndnr/autoserve/internal/cliargs"
	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/infra/confloader"
	"github.com/yndnr/autoserve/internal/infra/shutdown"
	"github.com/yndnr/autoserve/internal/schema"
	"github.com/yndnr/autoserve/internal/schema/errfmt"
	"github.com/yndnr/autoserve/internal/server/config"
)

// ConfigCommand returns the config subcommand group. The server and
// extension options of rt become the flags of 'config show'.
func ConfigCommand(rt *Runtime) *cli.Command {
	catalog := showCatalog(rt)
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Validate the config file against the schema catalog",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Show one block per schema with the offending source lines",
					},
					&cli.BoolFlag{
						Name:  "color",
						Usage: "Colorize pretty output (default: when writing to a terminal)",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Check again whenever the config file changes",
					},
				},
				Action: configCheck,
			},
			{
				Name:   "show",
				Usage:  "Show the resolved configuration (defaults < file < environment < flags)",
				Flags:  cliargs.ToFlags(catalog),
				Action: configShow(catalog),
			},
			{
				Name:   "defaults",
				Usage:  "Show the declared defaults of the server or of one extension",
				Flags:  extensionFlags(),
				Action: configDefaults,
			},
			{
				Name:   "args",
				Usage:  "List the command-line arguments derived from the schema",
				Flags:  extensionFlags(),
				Action: configArgs,
			},
		},
	}
}

func extensionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "driver",
			Usage: "Installed driver name (example: " + cliargs.ExampleName(schema.KindDriver) + ")",
		},
		&cli.StringFlag{
			Name:  "plugin",
			Usage: "Installed plugin name (example: " + cliargs.ExampleName(schema.KindPlugin) + ")",
		},
	}
}

func showCatalog(rt *Runtime) []cliargs.Argument {
	if rt == nil || rt.Projector == nil {
		return nil
	}
	catalog, err := rt.Projector.Catalog(cliargs.Options{Overrides: cliargs.DefaultOverrides()})
	if err != nil {
		rt.Logger.Warn("project server arguments", "error", err)
		return nil
	}
	return catalog
}

// checkOutput is the machine-readable result of 'config check'.
type checkOutput struct {
	Filepath string        `json:"filepath,omitempty" yaml:"filepath,omitempty"`
	Found    bool          `json:"found" yaml:"found"`
	Empty    bool          `json:"empty,omitempty" yaml:"empty,omitempty"`
	Valid    bool          `json:"valid" yaml:"valid"`
	Errors   []errfmt.Item `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func configCheck(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	rt := RuntimeFrom(c)
	log := commandLogger(c)
	opts := confloader.LoadOptions{
		Pretty: c.Bool("pretty"),
		Color:  useColor(c),
	}

	res, err := runCheck(c, rt, flags, flags.Config, opts)
	if err != nil {
		return err
	}
	if !c.Bool("watch") {
		if len(res.Errors) > 0 {
			return ErrProblems
		}
		return nil
	}
	if !res.Found() {
		return fmt.Errorf("no config file to watch")
	}

	w, err := confloader.NewWatcher(rt.Loader, res.Filepath, opts, confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return err
	}
	w.OnReload(func(res confloader.LoadResult, err error) {
		log.Info("config file changed", "path", w.Path())
		if err == nil {
			err = writeCheck(c, flags, res)
		}
		if err != nil {
			PrintError(c.App.ErrWriter, err)
		}
	})
	log.Info("watching config file", "path", w.Path())

	h := shutdown.NewHandler(shutdown.DefaultTimeout)
	h.OnShutdown(func(context.Context) error { return w.Stop() })
	go func() {
		if err := w.Run(c.Context); err != nil {
			log.Warn("config watcher stopped", "error", err)
		}
		h.Trigger()
	}()
	return h.Wait(c.Context)
}

// runCheck loads path and writes the verdict.
func runCheck(c *cli.Context, rt *Runtime, flags *GlobalFlags, path string, opts confloader.LoadOptions) (confloader.LoadResult, error) {
	res, err := rt.Loader.Load(path, opts)
	if err != nil {
		return res, err
	}
	return res, writeCheck(c, flags, res)
}

func writeCheck(c *cli.Context, flags *GlobalFlags, res confloader.LoadResult) error {
	if flags.Output != output.FormatTable {
		return render(c, checkOutput{
			Filepath: res.Filepath,
			Found:    res.Found(),
			Empty:    res.IsEmpty,
			Valid:    len(res.Errors) == 0,
			Errors:   res.Items,
		})
	}

	w := c.App.Writer
	switch {
	case !res.Found():
		fmt.Fprintln(w, "No config file found")
	case res.IsEmpty:
		fmt.Fprintf(w, "%s: config is empty\n", res.Filepath)
	case len(res.Errors) == 0:
		fmt.Fprintf(w, "%s: config is valid\n", res.Filepath)
	default:
		fmt.Fprintf(w, "%s: config is invalid\n%s", res.Filepath, res.Reason)
	}
	return nil
}

func useColor(c *cli.Context) bool {
	if c.IsSet("color") {
		return c.Bool("color")
	}
	return termenv.NewOutput(c.App.Writer).EnvColorProfile() != termenv.Ascii
}

func configShow(catalog []cliargs.Argument) cli.ActionFunc {
	return func(c *cli.Context) error {
		flags, err := ParseGlobalFlags(c)
		if err != nil {
			return err
		}
		rt := RuntimeFrom(c)

		file, err := rt.Loader.Load(flags.Config, confloader.LoadOptions{})
		if err != nil {
			return err
		}
		if len(file.Errors) > 0 {
			fmt.Fprintf(c.App.ErrWriter, "%s: config is invalid\n%s", file.Filepath, file.Reason)
			return ErrProblems
		}

		defaults, err := defaultLayer(rt)
		if err != nil {
			return err
		}
		fileLayer, err := normalizeExtensions(rt, file.Config)
		if err != nil {
			return err
		}
		env, err := envLayer(rt, catalog)
		if err != nil {
			return err
		}
		explicit := config.Nest(cliargs.SetValues(c, catalog))

		cfg, err := config.Resolve(defaults, fileLayer, env, explicit)
		if err != nil {
			return err
		}
		if err := config.Verify(cfg); err != nil {
			return err
		}
		commandLogger(c).Debug("config resolved",
			"file", file.Filepath,
			"env_keys", len(env),
			"flag_keys", len(explicit),
		)

		cfg = config.Sanitize(cfg)
		if flags.Output == output.FormatTable {
			flat, err := config.Flatten(cfg)
			if err != nil {
				return err
			}
			return render(c, flat)
		}
		return render(c, cfg)
	}
}

// defaultLayer is the declared defaults of the server group and of every
// mounted extension.
func defaultLayer(rt *Runtime) (map[string]any, error) {
	groups := []string{schema.GroupServer}
	for _, m := range rt.Registry.Mounts() {
		groups = append(groups, m.Key())
	}

	flat := make(map[string]any)
	for _, g := range groups {
		values, err := rt.Projector.Defaults(g)
		if err != nil {
			return nil, err
		}
		for dest, v := range values {
			flat[g+config.Delim+dest] = v
		}
	}
	return config.Nest(flat), nil
}

// normalizeExtensions renames the option keys below every mounted
// <kind>.<name> of doc to destination names, using the extension's own
// schema. The core normalization leaves them as written.
func normalizeExtensions(rt *Runtime, doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return nil, nil
	}
	out := shallowCopy(doc)
	for _, m := range rt.Registry.Mounts() {
		kind, ok := out[string(m.Kind)].(map[string]any)
		if !ok {
			continue
		}
		opts, ok := kind[m.Name].(map[string]any)
		if !ok {
			continue
		}
		tree, err := rt.Registry.Tree(m.ID)
		if err != nil {
			return nil, err
		}
		kind = shallowCopy(kind)
		kind[m.Name] = schema.NormalizeWith(tree, opts)
		out[string(m.Kind)] = kind
	}
	return out, nil
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// envLayer reads the AUTOSERVE_SERVER_* overlay, typed by the server
// arguments of catalog.
func envLayer(rt *Runtime, catalog []cliargs.Argument) (map[string]any, error) {
	doc, err := confloader.ReadEnv(confloader.EnvPrefix, schema.GroupServer, envConverter(catalog))
	if err != nil {
		return nil, domain.ErrArgumentInvalid.WithCause(err).WithDetails(err.Error())
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return rt.Normalizer.Normalize(doc, schema.CoreID)
}

func envConverter(catalog []cliargs.Argument) confloader.EnvConverter {
	return func(key, raw string) (any, bool, error) {
		a, ok := cliargs.Find(catalog, key)
		if !ok || a.Spec.Group != schema.GroupServer {
			return nil, false, nil
		}
		v, err := a.Spec.ParseValue(raw)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

// selectedExtension returns the extension named by --driver or --plugin.
func selectedExtension(c *cli.Context) (schema.Kind, string, error) {
	driver, plugin := c.String("driver"), c.String("plugin")
	switch {
	case driver != "" && plugin != "":
		return "", "", fmt.Errorf("--driver and --plugin are mutually exclusive")
	case driver != "":
		return schema.KindDriver, driver, nil
	case plugin != "":
		return schema.KindPlugin, plugin, nil
	}
	return "", "", nil
}

func mountOf(rt *Runtime, kind schema.Kind, name string) (schema.Mount, error) {
	m, ok := rt.Registry.MountFor(kind, name)
	if !ok {
		return m, domain.ErrSchemaNotFound.WithDetailsf("no installed %s named %q registers a schema", kind, name)
	}
	return m, nil
}

func configDefaults(c *cli.Context) error {
	rt := RuntimeFrom(c)
	kind, name, err := selectedExtension(c)
	if err != nil {
		return err
	}

	group := schema.GroupServer
	if kind != "" {
		m, err := mountOf(rt, kind, name)
		if err != nil {
			return err
		}
		group = m.Key()
	}

	defaults, err := rt.Projector.Defaults(group)
	if err != nil {
		return err
	}
	return render(c, defaults)
}

// argRow is one projected argument as listed by 'config args'.
type argRow struct {
	Flags   []string `json:"flags" yaml:"flags"`
	Dest    string   `json:"dest" yaml:"dest"`
	Type    string   `json:"type" yaml:"type"`
	Default any      `json:"default,omitempty" yaml:"default,omitempty"`
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty" table:"wide"`
	Help    string   `json:"help,omitempty" yaml:"help,omitempty" table:"wide"`
}

func configArgs(c *cli.Context) error {
	rt := RuntimeFrom(c)
	kind, name, err := selectedExtension(c)
	if err != nil {
		return err
	}

	opts := cliargs.Options{AssignDefaults: true, Overrides: cliargs.DefaultOverrides()}
	var args []cliargs.Argument
	if kind == "" {
		args, err = rt.Projector.ProjectGroup(schema.GroupServer, opts)
	} else {
		var m schema.Mount
		if m, err = mountOf(rt, kind, name); err == nil {
			args, err = rt.Projector.ProjectExtension(kind, name, m.ID, opts)
		}
	}
	if err != nil {
		return err
	}

	rows := make([]argRow, 0, len(args))
	for _, a := range args {
		row := argRow{
			Flags:   a.Flags,
			Dest:    a.Spec.Key(),
			Type:    a.Spec.Kind.String(),
			Choices: a.Spec.Choices,
			Help:    a.Spec.Help,
		}
		if a.Spec.HasDefault {
			row.Default = a.Spec.Default
		}
		rows = append(rows, row)
	}
	return render(c, rows)
}
