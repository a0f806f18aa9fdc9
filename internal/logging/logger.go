// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum level for console output (debug, info, warn, error).
	Level string
	// Development switches to the human-readable console encoder.
	Development bool
	// FileEnabled tees warnings and errors into a rotating log file so
	// crawl problems survive the console scrollback.
	FileEnabled bool
	FilePath    string
	MaxSizeMB   int
	MaxBackups  int
}

// New builds a zap.Logger configured for development or production,
// optionally teeing warnings into a rotating file.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
	}

	var logger *zap.Logger
	var err error
	if opts.Development {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.DisableStacktrace = false
		cfg.EncoderConfig.TimeKey = "ts"
		logger, err = cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build prod logger: %w", err)
		}
	}

	if !opts.FileEnabled {
		return logger, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(rotator),
		zapcore.WarnLevel,
	)

	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
