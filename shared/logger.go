package shared

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerAdapter interface {
	Error(msg string, err error, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Trace(msg string, fields ...zap.Field)
	With(fields ...zap.Field) LoggerAdapter
}

type zapLogger struct {
	logger *zap.Logger
}

var _ LoggerAdapter = (*zapLogger)(nil)

func (z *zapLogger) Error(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	z.logger.Error(msg, fields...)
}

func (z *zapLogger) Warn(msg string, fields ...zap.Field) {
	z.logger.Warn(msg, fields...)
}

func (z *zapLogger) Info(msg string, fields ...zap.Field) {
	z.logger.Info(msg, fields...)
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) {
	z.logger.Debug(msg, fields...)
}

// Trace is an alias of Debug; zap has no finer level.
func (z *zapLogger) Trace(msg string, fields ...zap.Field) {
	z.logger.Debug(msg, fields...)
}

func (z *zapLogger) With(fields ...zap.Field) LoggerAdapter {
	return &zapLogger{logger: z.logger.With(fields...)}
}

func NewStdLogger() LoggerAdapter {
	logger, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &zapLogger{logger: logger}
}

// NewNopLogger discards everything. Used by tests and by components built
// without a logger of their own.
func NewNopLogger() LoggerAdapter {
	return &zapLogger{logger: zap.NewNop()}
}

func NewFileLogger(filename string, maxSizeMB int, maxBackups int, maxAgeDays int, compress bool) LoggerAdapter {
	return newRotatingLogger(filename, maxSizeMB, maxBackups, maxAgeDays, compress, zapcore.DebugLevel)
}

// NewLogger builds the logger described by cfg. An empty file name logs to
// stderr in production JSON format.
func NewLogger(cfg LogConfig) LoggerAdapter {
	level := ParseLevel(cfg.Level)
	if cfg.File == "" {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err := zcfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
		return &zapLogger{logger: logger}
	}
	return newRotatingLogger(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays, cfg.Compress, level)
}

func newRotatingLogger(filename string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level zapcore.Level) LoggerAdapter {
	hook := lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&hook),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{logger: logger}
}

// ParseLevel maps "debug", "info", "warn" and "error" to zap levels.
// Anything else is treated as info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
