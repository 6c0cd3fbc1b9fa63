// Package logging builds the logrus logger shared by the readers and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Format is the output format of log entries.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config of a logger.
type Config struct {
	Level  string // logrus level name
	Format Format
	Output io.Writer // os.Stderr when nil
}

// DefaultConfig logs warnings and above as text to stderr.
func DefaultConfig() Config {
	return Config{Level: logrus.WarnLevel.String(), Format: FormatText}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	switch c.Format {
	case FormatText, FormatJSON, "":
	default:
		return fmt.Errorf("unsupported log format %q", c.Format)
	}

	return nil
}

// New creates a logger from cfg.
func New(cfg Config) (*logrus.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = DefaultConfig().Level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logrus.ParseLevel(cfg.Level)

	l := logrus.New()
	l.SetLevel(level)

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stderr)
	}

	if cfg.Format == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	return l, nil
}
