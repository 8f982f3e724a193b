package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Field names shared by every log sink
const (
	FieldTimestamp = "timestamp"
	FieldLevel     = "level"
	FieldLogger    = "logger"
	FieldCaller    = "caller"
	FieldMessage   = "message"
)

// NewFileEncoderConfig is the JSON layout written to log files
func NewFileEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        FieldTimestamp,
		LevelKey:       FieldLevel,
		NameKey:        FieldLogger,
		CallerKey:      FieldCaller,
		MessageKey:     FieldMessage,
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewConsoleEncoderConfig is the human-readable layout for stderr
func NewConsoleEncoderConfig(color bool) zapcore.EncoderConfig {
	cfg := NewFileEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncodeTime = shortTimeEncoder
	cfg.CallerKey = zapcore.OmitKey
	return cfg
}

func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}
