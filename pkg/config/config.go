// Package config loads smellscan settings from defaults, an optional YAML
// file and SMELLSCAN_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/smellscan/pkg/observability"
	"github.com/Sumatoshi-tech/smellscan/pkg/report"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

// Sentinel validation errors.
var (
	ErrUnknownRule       = errors.New("unknown rule")
	ErrInvalidNamePolicy = errors.New("invalid import name policy")
	ErrInvalidWorkers    = errors.New("scan workers must not be negative")
	ErrInvalidFormat     = errors.New("invalid output format")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("invalid log format")
	ErrInvalidFileSize   = errors.New("invalid max file size")
	ErrInvalidCacheSize  = errors.New("scan cache entries must not be negative")
)

const (
	envPrefix      = "SMELLSCAN"
	configName     = ".smellscan"
	configType     = "yaml"
	systemConfDir  = "/etc/smellscan"
	logFormatJSON  = "json"
	logFormatText  = "text"
	maxFileSizeMax = 1 << 40
)

// Config holds all smellscan settings.
type Config struct {
	Rules     RulesConfig     `mapstructure:"rules"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// RulesConfig selects and tunes the detection rules.
type RulesConfig struct {
	ImportNames           string   `mapstructure:"import_names"`
	Enabled               []string `mapstructure:"enabled"`
	IncludeComprehensions bool     `mapstructure:"include_comprehensions"`
}

// ScanConfig controls file loading and parallelism.
type ScanConfig struct {
	// MaxFileSize is a humanized size such as "1MB" or "512KiB"; "0" disables the limit.
	MaxFileSize string `mapstructure:"max_file_size"`
	// Workers bounds multi-file scans; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
	// CacheEntries bounds the content-hash result cache; 0 disables it.
	CacheEntries int `mapstructure:"cache_entries"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings. MetricsAddr serves
// Prometheus metrics in the lsp and mcp modes when set.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from configPath, or from .smellscan.yaml in
// the working directory, $HOME or /etc/smellscan when configPath is empty.
// A missing search-path file is not an error; a missing explicit file is.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType(configType)
		viperCfg.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}

		viperCfg.AddConfigPath(systemConfDir)
	}

	viperCfg.SetEnvPrefix(envPrefix)
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

// Default returns the configuration LoadConfig yields with no file and no environment.
func Default() *Config {
	return &Config{
		Rules: RulesConfig{
			Enabled:               DefaultEnabledRules(),
			ImportNames:           DefaultImportNames,
			IncludeComprehensions: DefaultIncludeComprehensions,
		},
		Scan:    ScanConfig{Workers: DefaultWorkers, MaxFileSize: DefaultMaxFileSize, CacheEntries: DefaultCacheEntries},
		Output:  OutputConfig{Format: DefaultOutputFormat, Color: DefaultOutputColor},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("rules.enabled", DefaultEnabledRules())
	viperCfg.SetDefault("rules.import_names", DefaultImportNames)
	viperCfg.SetDefault("rules.include_comprehensions", DefaultIncludeComprehensions)

	viperCfg.SetDefault("scan.workers", DefaultWorkers)
	viperCfg.SetDefault("scan.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("scan.cache_entries", DefaultCacheEntries)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.color", DefaultOutputColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}

// Validate checks every field and returns the first violation.
func (c *Config) Validate() error {
	for _, name := range c.Rules.Enabled {
		_, err := smell.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownRule, name)
		}
	}

	_, err := smell.ParseNamePolicy(c.Rules.ImportNames)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidNamePolicy, c.Rules.ImportNames)
	}

	if c.Scan.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Scan.Workers)
	}

	if c.Scan.CacheEntries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Scan.CacheEntries)
	}

	_, err = c.MaxFileSize()
	if err != nil {
		return err
	}

	_, err = report.ParseFormat(c.Output.Format)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	_, err = c.LogLevel()
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case logFormatText, logFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}

// AnalyzerOptions maps the rule settings to analyzer options.
// Unknown names are skipped; Validate reports them.
func (c *Config) AnalyzerOptions() smell.Options {
	opts := smell.DefaultOptions()
	opts.IncludeComprehensions = c.Rules.IncludeComprehensions
	opts.Rules = make([]smell.Category, 0, len(c.Rules.Enabled))

	for _, name := range c.Rules.Enabled {
		if category, err := smell.ParseCategory(name); err == nil {
			opts.Rules = append(opts.Rules, category)
		}
	}

	if policy, err := smell.ParseNamePolicy(c.Rules.ImportNames); err == nil {
		opts.ImportNames = policy
	}

	return opts
}

// MaxFileSize returns scan.max_file_size in bytes; zero means no limit.
func (c *Config) MaxFileSize() (int64, error) {
	raw := strings.TrimSpace(c.Scan.MaxFileSize)
	if raw == "" || raw == "0" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidFileSize, c.Scan.MaxFileSize, err)
	}

	if size > maxFileSizeMax {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidFileSize, c.Scan.MaxFileSize, humanize.IBytes(maxFileSizeMax))
	}

	return int64(size), nil
}

// LogLevel parses logging.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// Observability builds the telemetry setup for mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.Mode = mode
	obs.ServiceVersion = version
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.LogJSON = strings.EqualFold(c.Logging.Format, logFormatJSON)
	obs.Prometheus = c.Telemetry.MetricsAddr != "" && mode != observability.ModeCLI

	if level, err := c.LogLevel(); err == nil {
		obs.LogLevel = level
	}

	return obs
}
