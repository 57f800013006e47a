package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "python", cfg.Language.Default)
	assert.Equal(t, []string{"polars"}, cfg.Packages.Enabled)
	assert.Empty(t, cfg.Extensions.Paths)
	assert.False(t, cfg.Extensions.Strict)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.LSP.MetricsAddr)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	content := `
language:
  default: javascript
packages:
  enabled: []
extensions:
  paths: ["ext/", "more.jsonc"]
  strict: true
logging:
  level: debug
  format: json
observability:
  otlp_endpoint: "localhost:4317"
  otlp_insecure: true
lsp:
  metrics_addr: ":9464"
`

	path := filepath.Join(t.TempDir(), "projector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "javascript", cfg.Language.Default)
	assert.Empty(t, cfg.Packages.Enabled)
	assert.Equal(t, []string{"ext/", "more.jsonc"}, cfg.Extensions.Paths)
	assert.True(t, cfg.Extensions.Strict)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "localhost:4317", cfg.Observability.OTLPEndpoint)
	assert.True(t, cfg.Observability.OTLPInsecure)
	assert.Equal(t, ":9464", cfg.LSP.MetricsAddr)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PROJECTOR_LOGGING_LEVEL", "warn")
	t.Setenv("PROJECTOR_EXTENSIONS_STRICT", "true")
	t.Setenv("PROJECTOR_LSP_METRICS_ADDR", "127.0.0.1:9000")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Extensions.Strict)
	assert.Equal(t, "127.0.0.1:9000", cfg.LSP.MetricsAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		return config.Config{
			Language: config.LanguageConfig{Default: "python"},
			Logging:  config.LoggingConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "no language", mutate: func(c *config.Config) { c.Language.Default = "" }, want: config.ErrMissingLanguage},
		{name: "bad level", mutate: func(c *config.Config) { c.Logging.Level = "loud" }, want: config.ErrInvalidLogLevel},
		{name: "bad format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, want: config.ErrInvalidLogFormat},
		{name: "empty package", mutate: func(c *config.Config) { c.Packages.Enabled = []string{""} }, want: config.ErrEmptyPackageName},
		{name: "empty path", mutate: func(c *config.Config) { c.Extensions.Paths = []string{""} }, want: config.ErrEmptyExtensionRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.want)
		})
	}
}
