package cliargs

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
)

// ToFlags converts a projected catalog to urfave/cli flags. Values are not
// pre-populated with defaults, so SetValues only reports what the user
// actually passed.
func ToFlags(args []Argument) []cli.Flag {
	flags := make([]cli.Flag, 0, len(args))
	for _, a := range args {
		names := flagNames(a)
		usage := a.Spec.Help
		if len(a.Spec.Choices) > 0 {
			usage += " (one of: " + strings.Join(a.Spec.Choices, ", ") + ")"
		}
		category := a.Spec.Group
		if category == "" {
			category = categoryOf(a.Spec.Dest)
		}
		defaultText := ""
		if a.Spec.HasDefault {
			defaultText = render(a.Spec.Default)
		}

		switch a.Spec.Kind {
		case KindBool:
			flags = append(flags, &cli.BoolFlag{
				Name:        names[0],
				Aliases:     names[1:],
				Usage:       usage,
				Category:    category,
				DefaultText: defaultText,
			})
		default:
			flags = append(flags, &cli.GenericFlag{
				Name:        names[0],
				Aliases:     names[1:],
				Usage:       usage,
				Category:    category,
				DefaultText: defaultText,
				Value:       &argValue{spec: a.Spec},
			})
		}
	}
	return flags
}

// SetValues returns the values of the explicitly set flags of args, keyed
// by config path (ArgumentSpec.Key).
func SetValues(c *cli.Context, args []Argument) map[string]any {
	out := make(map[string]any)
	for _, a := range args {
		name := flagNames(a)[0]
		if !c.IsSet(name) {
			continue
		}
		switch a.Spec.Kind {
		case KindBool:
			out[a.Spec.Key()] = c.Bool(name)
		default:
			if v, ok := c.Generic(name).(*argValue); ok && v.set {
				out[a.Spec.Key()] = v.value
			}
		}
	}
	return out
}

func flagNames(a Argument) []string {
	names := make([]string, len(a.Flags))
	for i, f := range a.Flags {
		names[i] = strings.TrimLeft(f, "-")
	}
	return names
}

// categoryOf turns "driver.uiautomator2.adbPort" into "driver uiautomator2".
func categoryOf(dest string) string {
	parts := strings.SplitN(dest, ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + " " + parts[1]
}

// argValue implements cli.Generic for every non-boolean argument.
type argValue struct {
	spec  ArgumentSpec
	value any
	set   bool
}

func (v *argValue) Set(raw string) error {
	parsed, err := v.spec.ParseValue(raw)
	if err != nil {
		return err
	}
	if v.spec.Kind == KindList {
		list, _ := v.value.([]any)
		v.value = append(list, parsed.([]any)...)
	} else {
		v.value = parsed
	}
	v.set = true
	return nil
}

func (v *argValue) String() string {
	if v == nil || !v.set {
		return ""
	}
	return render(v.value)
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
