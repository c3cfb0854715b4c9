package config

// ServerConfig is the resolved autoserve configuration. Field tags are the
// destination names config keys are normalized to.
type ServerConfig struct {
	Server ServerSection `koanf:"server" json:"server" yaml:"server"`

	// Driver and Plugin hold extension options keyed by extension name,
	// then by destination name.
	Driver map[string]map[string]any `koanf:"driver" json:"driver,omitempty" yaml:"driver,omitempty"`
	Plugin map[string]map[string]any `koanf:"plugin" json:"plugin,omitempty" yaml:"plugin,omitempty"`
}

// ServerSection configures the automation server.
type ServerSection struct {
	Address  string `koanf:"address" json:"address" yaml:"address"`
	Port     int    `koanf:"port" json:"port" yaml:"port"`
	BasePath string `koanf:"basePath" json:"basePath" yaml:"basePath"`

	AllowCors              bool     `koanf:"allowCors" json:"allowCors" yaml:"allowCors"`
	AllowInsecure          []string `koanf:"allowInsecure" json:"allowInsecure" yaml:"allowInsecure"`
	DenyInsecure           []string `koanf:"denyInsecure" json:"denyInsecure" yaml:"denyInsecure"`
	RelaxedSecurityEnabled bool     `koanf:"relaxedSecurityEnabled" json:"relaxedSecurityEnabled" yaml:"relaxedSecurityEnabled"`
	SessionOverride        bool     `koanf:"sessionOverride" json:"sessionOverride" yaml:"sessionOverride"`
	StrictCaps             bool     `koanf:"strictCaps" json:"strictCaps" yaml:"strictCaps"`
	NoPermsCheck           bool     `koanf:"noPermsCheck" json:"noPermsCheck" yaml:"noPermsCheck"`
	KeepAliveTimeout       int      `koanf:"keepAliveTimeout" json:"keepAliveTimeout" yaml:"keepAliveTimeout"`

	CallbackAddress string `koanf:"callbackAddress" json:"callbackAddress" yaml:"callbackAddress"`
	CallbackPort    int    `koanf:"callbackPort" json:"callbackPort" yaml:"callbackPort"`

	SSLCertPath string `koanf:"sslCertPath" json:"sslCertPath" yaml:"sslCertPath"`
	SSLKeyPath  string `koanf:"sslKeyPath" json:"sslKeyPath" yaml:"sslKeyPath"`

	// DefaultCapabilities are merged into every new session.
	DefaultCapabilities map[string]any `koanf:"defaultCapabilities" json:"defaultCapabilities" yaml:"defaultCapabilities"`

	// Nodeconfig is a grid node config object or a path to one.
	Nodeconfig any `koanf:"nodeconfig" json:"nodeconfig" yaml:"nodeconfig"`

	UseDrivers []string `koanf:"useDrivers" json:"useDrivers" yaml:"useDrivers"`
	UsePlugins []string `koanf:"usePlugins" json:"usePlugins" yaml:"usePlugins"`

	TmpDir   string `koanf:"tmpDir" json:"tmpDir" yaml:"tmpDir"`
	TraceDir string `koanf:"traceDir" json:"traceDir" yaml:"traceDir"`
	Webhook  string `koanf:"webhook" json:"webhook" yaml:"webhook"`

	LogFile         string `koanf:"logFile" json:"logFile" yaml:"logFile"`
	LogLevel        string `koanf:"loglevel" json:"loglevel" yaml:"loglevel"`
	LogFilters      any    `koanf:"logFilters" json:"logFilters" yaml:"logFilters"`
	LogNoColors     bool   `koanf:"logNoColors" json:"logNoColors" yaml:"logNoColors"`
	LogTimestamp    bool   `koanf:"logTimestamp" json:"logTimestamp" yaml:"logTimestamp"`
	LocalTimezone   bool   `koanf:"localTimezone" json:"localTimezone" yaml:"localTimezone"`
	DebugLogSpacing bool   `koanf:"debugLogSpacing" json:"debugLogSpacing" yaml:"debugLogSpacing"`
	LongStacktrace  bool   `koanf:"longStacktrace" json:"longStacktrace" yaml:"longStacktrace"`
}
