// Package logging builds the zap loggers used across prompt-mover.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at the given level. Production config writes JSON to
// stderr; development config writes human readable console lines.
func New(level string, development bool) (*zap.Logger, error) {
	return build(level, development, nil)
}

// NewFile builds a production logger that writes to path instead of stderr.
// The selection UI uses it so log lines never land on the alternate screen.
func NewFile(level, path string) (*zap.Logger, error) {
	return build(level, false, []string{path})
}

func build(level string, development bool, outputs []string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	if outputs != nil {
		config.OutputPaths = outputs
		config.ErrorOutputPaths = outputs
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("prompt-mover"), nil
}

// ParseLevel maps a level name to a zap level; empty means info
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}
