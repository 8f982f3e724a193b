// Package logging builds the zap loggers used across the module: a console
// core on stderr, optionally teed with a rotating JSON file core.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and sinks
type Config struct {
	Level string
	// File enables a JSON log file with rotation when non-empty
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Color turns on ANSI level colors on the console
	Color bool
}

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// ParseLevel accepts debug, info, warn/warning and error in any case
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// NewFileWriter returns a size-rotated writer for path
func NewFileWriter(cfg Config) *lumberjack.Logger {
	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	if w.MaxSize <= 0 {
		w.MaxSize = DefaultMaxSizeMB
	}
	if w.MaxBackups <= 0 {
		w.MaxBackups = DefaultMaxBackups
	}
	if w.MaxAge <= 0 {
		w.MaxAge = DefaultMaxAgeDays
	}
	return w
}

// New builds a logger writing to stderr and, if cfg.File is set, to the
// rotating file
func New(cfg Config) (*zap.Logger, error) {
	return NewWithConsole(cfg, os.Stderr)
}

// NewWithConsole is New with the console sink replaced by w
func NewWithConsole(cfg Config, w io.Writer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(NewConsoleEncoderConfig(cfg.Color)), zapcore.AddSync(w), level),
	}
	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(NewFileEncoderConfig()),
			zapcore.AddSync(NewFileWriter(cfg)),
			level,
		))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
