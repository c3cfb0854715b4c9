package confloader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/providers/env"
)

// EnvPrefix is the prefix of the variables that overlay server config
// keys: AUTOSERVE_SERVER_ALLOW_CORS sets server.allow-cors.
const EnvPrefix = "AUTOSERVE_SERVER_"

// EnvConverter types the raw value of the overlay variable for key. A
// false ok drops the variable.
type EnvConverter func(key, raw string) (value any, ok bool, err error)

// ReadEnv reads the variables starting with prefix as kebab-case keys of
// group and returns them as a nested config document. With a nil conv
// every variable is kept as a string.
func ReadEnv(prefix, group string, conv EnvConverter) (map[string]any, error) {
	var errs []error
	provider := env.ProviderWithValue(prefix, ".", func(name, raw string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, prefix)), "_", "-")
		if key == "" {
			return "", nil
		}
		var value any = raw
		if conv != nil {
			v, ok, err := conv(key, raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return "", nil
			}
			if !ok {
				return "", nil
			}
			value = v
		}
		if group == "" {
			return key, value
		}
		return group + "." + key, value
	})

	m, err := provider.Read()
	if err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, errors.Join(errs...)
	}
	return m, nil
}
