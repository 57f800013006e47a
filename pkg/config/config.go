// Package config provides configuration loading and validation for projector.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrMissingLanguage   = errors.New("language.default must not be empty")
	ErrInvalidLogLevel   = errors.New("invalid logging level")
	ErrInvalidLogFormat  = errors.New("invalid logging format")
	ErrEmptyPackageName  = errors.New("packages.enabled must not contain empty names")
	ErrEmptyExtensionRef = errors.New("extensions.paths must not contain empty paths")
)

// Config holds all configuration for the projector CLI and servers.
type Config struct {
	Language      LanguageConfig      `mapstructure:"language"`
	Packages      PackagesConfig      `mapstructure:"packages"`
	Extensions    ExtensionsConfig    `mapstructure:"extensions"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	LSP           LSPConfig           `mapstructure:"lsp"`
}

// LanguageConfig selects the target language and extra language config files.
type LanguageConfig struct {
	Default string   `mapstructure:"default"`
	Configs []string `mapstructure:"configs"`
}

// PackagesConfig lists the built-in projection packages to load.
type PackagesConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// ExtensionsConfig lists descriptor files or directories applied at load time.
// With Strict set, loading stops at the first failing descriptor.
type ExtensionsConfig struct {
	Paths  []string `mapstructure:"paths"`
	Strict bool     `mapstructure:"strict"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// LSPConfig holds language server settings.
type LSPConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(".projector")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
		viperCfg.AddConfigPath("/etc/projector")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("language.default", DefaultLanguage)
	viperCfg.SetDefault("language.configs", []string{})

	viperCfg.SetDefault("packages.enabled", DefaultPackages())

	viperCfg.SetDefault("extensions.paths", []string{})
	viperCfg.SetDefault("extensions.strict", DefaultExtensionsStrict)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)

	viperCfg.SetDefault("lsp.metrics_addr", "")
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Language.Default == "" {
		return ErrMissingLanguage
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if !slices.Contains(logFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if slices.Contains(c.Packages.Enabled, "") {
		return ErrEmptyPackageName
	}

	if slices.Contains(c.Extensions.Paths, "") {
		return ErrEmptyExtensionRef
	}

	return nil
}
