package config

import "strings"

var sensitiveCapabilityWords = []string{"password", "token", "secret", "accesskey", "apikey"}

// Sanitize returns a copy of the config with secret-looking default
// capabilities masked, for logging and display.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	if len(cfg.Server.DefaultCapabilities) > 0 {
		caps := make(map[string]any, len(cfg.Server.DefaultCapabilities))
		for k, v := range cfg.Server.DefaultCapabilities {
			if s, ok := v.(string); ok && sensitiveCapability(k) {
				v = maskSecret(s)
			}
			caps[k] = v
		}
		sanitized.Server.DefaultCapabilities = caps
	}
	return &sanitized
}

func sensitiveCapability(name string) bool {
	name = strings.ToLower(name)
	for _, w := range sensitiveCapabilityWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
