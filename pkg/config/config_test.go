package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/smellscan/pkg/config"
	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".smellscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)

	size, err := cfg.MaxFileSize()
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), size)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	assert.Equal(t, smell.Options{
		Rules:       []smell.Category{smell.CategoryNestedLoop, smell.CategoryUnusedImport},
		ImportNames: smell.NamesBound,
	}, cfg.AnalyzerOptions())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `rules:
  enabled: [unused-import]
  import_names: declared
  include_comprehensions: true
scan:
  workers: 4
  max_file_size: 256KiB
output:
  format: sarif
  color: false
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  otlp_headers: "api-key=secret"
  metrics_addr: ":9464"
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"unused-import"}, cfg.Rules.Enabled)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, "sarif", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)

	size, err := cfg.MaxFileSize()
	require.NoError(t, err)
	assert.Equal(t, int64(256*1024), size)

	assert.Equal(t, smell.Options{
		Rules:                 []smell.Category{smell.CategoryUnusedImport},
		ImportNames:           smell.NamesDeclared,
		IncludeComprehensions: true,
	}, cfg.AnalyzerOptions())

	obs := cfg.Observability(observability.ModeLSP, "1.0.0")
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.True(t, obs.OTLPInsecure)
	assert.True(t, obs.LogJSON)
	assert.True(t, obs.Prometheus)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.Equal(t, map[string]string{"api-key": "secret"}, obs.OTLPHeaders)
	assert.Equal(t, "1.0.0", obs.ServiceVersion)

	assert.False(t, cfg.Observability(observability.ModeCLI, "").Prometheus)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    error
		name    string
		content string
	}{
		{name: "unknown rule", content: "rules:\n  enabled: [long-function]\n", want: config.ErrUnknownRule},
		{name: "name policy", content: "rules:\n  import_names: alias\n", want: config.ErrInvalidNamePolicy},
		{name: "negative workers", content: "scan:\n  workers: -1\n", want: config.ErrInvalidWorkers},
		{name: "negative cache", content: "scan:\n  cache_entries: -5\n", want: config.ErrInvalidCacheSize},
		{name: "file size", content: "scan:\n  max_file_size: lots\n", want: config.ErrInvalidFileSize},
		{name: "format", content: "output:\n  format: html\n", want: config.ErrInvalidFormat},
		{name: "log level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "log format", content: "logging:\n  format: xml\n", want: config.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_EmptyRuleListDisablesRules(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "rules:\n  enabled: []\n"))
	require.NoError(t, err)

	opts := cfg.AnalyzerOptions()
	assert.NotNil(t, opts.Rules)
	assert.Empty(t, opts.Rules)
}

func TestLoadConfig_UnlimitedFileSize(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "scan:\n  max_file_size: \"0\"\n"))
	require.NoError(t, err)

	size, err := cfg.MaxFileSize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

// Environment tests mutate process state and cannot run in parallel.
func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SMELLSCAN_SCAN_WORKERS", "3")
	t.Setenv("SMELLSCAN_OUTPUT_FORMAT", "json")
	t.Setenv("SMELLSCAN_RULES_IMPORT_NAMES", "declared")

	cfg, err := config.LoadConfig(writeConfig(t, "scan:\n  workers: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "declared", cfg.Rules.ImportNames)
}

func TestLoadConfig_EnvValidation(t *testing.T) {
	t.Setenv("SMELLSCAN_LOGGING_LEVEL", "chatty")

	_, err := config.LoadConfig(writeConfig(t, ""))
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}
