// Package logging - Structured logger construction for the depth pipelines.
package logging

import (
	"os"

	"github.com/nvr-ai/go-depth/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a zap level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`
	// Development switches to a colored console encoder.
	Development bool `json:"development" yaml:"development"`
	// File adds a rotating file sink next to stderr when non-empty.
	File string `json:"file" yaml:"file"`
}

// New builds a zap logger writing to stderr and, optionally, a rotated file.
//
// Arguments:
//   - opts: Level, encoder and sink selection.
//
// Returns:
//   - *zap.Logger: The configured logger.
//   - error: If the level name is invalid.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
	}

	var encoderConfig zapcore.EncoderConfig
	var console zapcore.Encoder
	if opts.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		console = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		console = zapcore.NewConsoleEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Must is New for main packages; it falls back to a no-op logger on error.
func Must(opts Options) *zap.Logger {
	logger, err := New(opts)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// FromConfig maps the process configuration onto Options.
func FromConfig(cfg config.Config) Options {
	return Options{Level: cfg.LogLevel, File: cfg.LogFile}
}
