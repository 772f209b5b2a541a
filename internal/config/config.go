// Package config loads CLI settings from defaults, an optional config file
// and CYCLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CYCLE_LOG_LEVEL for
// log.level.
const EnvPrefix = "CYCLE"

// Config is the complete CLI configuration.
type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Run   RunConfig   `mapstructure:"run"`
	Trace TraceConfig `mapstructure:"trace"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// RunConfig holds scenario timing used when a scenario sets none.
type RunConfig struct {
	DurationMS int `mapstructure:"duration_ms"`
	SettleMS   int `mapstructure:"settle_ms"`
}

// TraceConfig controls trace persistence.
type TraceConfig struct {
	// DB is the SQLite path runs are written to. Empty disables persistence.
	DB string `mapstructure:"db"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Run:   RunConfig{DurationMS: 50},
		Trace: TraceConfig{},
	}
}

// SetDefaults registers every key with its default so that environment
// variables and Unmarshal see it.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetDefault("run.duration_ms", defaults.Run.DurationMS)
	v.SetDefault("run.settle_ms", defaults.Run.SettleMS)

	v.SetDefault("trace.db", defaults.Trace.DB)
}

// New returns a viper instance with defaults and environment overrides
// applied. A non-empty configFile must exist; otherwise ./cycle.yaml is read
// if present.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	// CYCLE_RUN_DURATION_MS for run.duration_ms
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("cycle")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Duration is the run duration as a time.Duration.
func (c RunConfig) Duration() time.Duration {
	return time.Duration(c.DurationMS) * time.Millisecond
}

// Settle is the post-dispose wait as a time.Duration.
func (c RunConfig) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// SlogLevel maps Level to a slog level. Unknown levels map to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "run.duration_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Log.Level) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: "must be one of " + strings.Join(ValidLogLevels(), ", "),
		})
	}
	if !slices.Contains(ValidLogFormats(), c.Log.Format) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: "must be one of " + strings.Join(ValidLogFormats(), ", "),
		})
	}
	if c.Run.DurationMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "run.duration_ms",
			Value:   c.Run.DurationMS,
			Message: "must be non-negative",
		})
	}
	if c.Run.SettleMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "run.settle_ms",
			Value:   c.Run.SettleMS,
			Message: "must be non-negative",
		})
	}

	return errs
}
