package config

// EnvPrefix prefixes every environment variable override, e.g. PROJECTOR_LOGGING_LEVEL.
const EnvPrefix = "PROJECTOR"

// Default values.
const (
	DefaultLanguage         = "python"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultExtensionsStrict = false
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// DefaultPackages returns the built-in packages loaded when none are configured.
func DefaultPackages() []string {
	return []string{"polars"}
}
