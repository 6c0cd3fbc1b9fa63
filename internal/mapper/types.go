package mapper

import (
	"github.com/sirupsen/logrus"

	"simulation-parsers/internal/common"
)

// Mode is the update mode of a mapping pass.
type Mode int

const (
	// ModeAppend overwrites quantities and appends to repeated sub-sections.
	ModeAppend Mode = iota
	// ModeMergeLast merges the first element of a repeated sub-section value
	// into the last existing sub-section and appends the rest.
	ModeMergeLast
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeMergeLast:
		return "merge_last"
	default:
		return common.UnknownStr
	}
}

// Config holds configuration for a Mapper.
type Config struct {
	// Logger receives per-field warnings. Defaults to the standard logger.
	Logger logrus.FieldLogger
	// MaxDepth limits section nesting (0 = unlimited).
	MaxDepth int
}

// DefaultConfig returns the default mapper configuration.
func DefaultConfig() Config {
	return Config{
		Logger:   logrus.StandardLogger(),
		MaxDepth: 16,
	}
}
