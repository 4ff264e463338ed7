// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package log

import (
	"sync/atomic"

	pclog "github.com/pingcap/log"
	"go.uber.org/zap"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// Config is the configuration of the application logger.
type Config struct {
	// Level is the log level, one of debug, info, warn, error.
	Level string
	// File is the log file path, empty means stderr.
	File string
	// Format is text or json.
	Format string
}

var appLogger atomic.Value

func init() {
	logger, err := zap.NewDevelopment(zap.AddCaller())
	if err != nil {
		logger = zap.NewNop()
	}
	appLogger.Store(logger)
}

// InitAppLogger replaces the global logger with one built from cfg.
func InitAppLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.Level == "" {
		cfg.Level = defaultLogLevel
	}
	if cfg.Format == "" {
		cfg.Format = defaultLogFormat
	}
	logger, props, err := pclog.InitLogger(&pclog.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   pclog.FileLogConfig{Filename: cfg.File},
	})
	if err != nil {
		return nil, err
	}
	pclog.ReplaceGlobals(logger, props)
	SetAppLogger(logger)
	return logger, nil
}

// SetAppLogger sets the global logger used by backup4go.
func SetAppLogger(logger *zap.Logger) {
	appLogger.Store(logger)
}

// Zap returns the global backup4go logger.
func Zap() *zap.Logger {
	return appLogger.Load().(*zap.Logger)
}

// Debug logs a message at DebugLevel.
func Debug(msg string, fields ...zap.Field) {
	Zap().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs a message at InfoLevel.
func Info(msg string, fields ...zap.Field) {
	Zap().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, fields ...zap.Field) {
	Zap().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, fields ...zap.Field) {
	Zap().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}
