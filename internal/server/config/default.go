package config

// Default configuration values. They match the defaults declared by the
// core schema.
const (
	DefaultAddress          = "0.0.0.0"
	DefaultPort             = 4723
	DefaultBasePath         = ""
	DefaultKeepAliveTimeout = 600
	DefaultLogLevel         = "debug"
)

// Default returns the configuration an empty config file resolves to.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Address:          DefaultAddress,
			Port:             DefaultPort,
			BasePath:         DefaultBasePath,
			AllowInsecure:    []string{},
			DenyInsecure:     []string{},
			KeepAliveTimeout: DefaultKeepAliveTimeout,
			UseDrivers:       []string{},
			UsePlugins:       []string{},
			LogLevel:         DefaultLogLevel,
		},
	}
}
