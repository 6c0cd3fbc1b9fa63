// Package config loads the run configuration from an optional config file
// and SIMPARSE_* environment variables through viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"simulation-parsers/internal/discover"
	"simulation-parsers/internal/logging"
	"simulation-parsers/internal/readers"
)

// EnvPrefix of the environment variables.
const EnvPrefix = "SIMPARSE"

// Keys.
const (
	KeySearchDepth   = "search_depth"
	KeyStrict        = "strict"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeySpinTolerance = "spin_tolerance"
)

// Config of a run.
type Config struct {
	SearchDepth   int     `mapstructure:"search_depth"`
	Strict        bool    `mapstructure:"strict"`
	LogLevel      string  `mapstructure:"log_level"`
	LogFormat     string  `mapstructure:"log_format"`
	SpinTolerance float64 `mapstructure:"spin_tolerance"`
}

// New returns a viper instance with the defaults and the environment
// binding set.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeySearchDepth, discover.DefaultMaxDirs)
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyLogLevel, logging.DefaultConfig().Level)
	v.SetDefault(KeyLogFormat, string(logging.FormatText))
	v.SetDefault(KeySpinTolerance, readers.DefaultSpinTolerance)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return v
}

// Load reads file, when given, into v and decodes the configuration.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks value ranges and the logging settings.
func (c Config) Validate() error {
	if c.SearchDepth < 0 {
		return fmt.Errorf("%s must not be negative", KeySearchDepth)
	}

	if c.SpinTolerance < 0 {
		return fmt.Errorf("%s must not be negative", KeySpinTolerance)
	}

	return c.Logging().Validate()
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: logging.Format(c.LogFormat)}
}

// ReaderOptions returns reader options for the configuration. File system
// and logger are left for the caller.
func (c Config) ReaderOptions() readers.Options {
	return readers.Options{
		SearchDepth:   c.SearchDepth,
		Strict:        c.Strict,
		SpinTolerance: c.SpinTolerance,
	}
}
