package utils

import (
	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide zap.Logger. debug raises the level
// and re-enables caller/stacktrace annotation; silent discards
// everything below Error. Console encoding is colorized unless the
// output isn't a terminal (fatih/color.NoColor already accounts for
// NO_COLOR/piping).
func NewLogger(debug, silent bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = levelEncoder()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch {
	case silent:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
		cfg.DisableStacktrace = true
	case debug:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.DisableStacktrace = false
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.DisableStacktrace = true
		cfg.EncoderConfig.EncodeCaller = nil
	}

	return cfg.Build()
}

func levelEncoder() zapcore.LevelEncoder {
	if color.NoColor {
		return zapcore.CapitalLevelEncoder
	}
	return zapcore.CapitalColorLevelEncoder
}
