// Package logging owns the process-wide zap logger and the Gin middleware
// that attaches a request-scoped logger to every request.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	mu         sync.RWMutex
	baseLogger *zap.Logger
	loggerErr  error
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func encodeTimeMicros(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(timestampLayout))
}

// encodeSeverity maps zap levels to Cloud Logging severity names.
func encodeSeverity(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var severity string
	switch l {
	case zapcore.DebugLevel:
		severity = "DEBUG"
	case zapcore.InfoLevel:
		severity = "INFO"
	case zapcore.WarnLevel:
		severity = "WARNING"
	case zapcore.ErrorLevel:
		severity = "ERROR"
	case zapcore.DPanicLevel:
		severity = "CRITICAL"
	case zapcore.PanicLevel:
		severity = "ALERT"
	case zapcore.FatalLevel:
		severity = "EMERGENCY"
	default:
		severity = "DEFAULT"
	}
	enc.AppendString(severity)
}

func newConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = encodeTimeMicros
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.EncodeLevel = encodeSeverity
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.CallerKey = "caller"
	return cfg
}

// Init builds the process logger. In development the level drops to debug.
// Safe to call more than once; the last call wins.
func Init(environment string) error {
	if environment == "development" {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}

	logger, err := newConfig().Build(zap.AddCaller())

	mu.Lock()
	defer mu.Unlock()
	loggerErr = err
	if err != nil {
		baseLogger = zap.NewNop()
		return err
	}
	baseLogger = logger.With(zap.String("service", "greencoach-service"))
	return nil
}

// Logger returns the process-wide logger, building it on first use.
func Logger() *zap.Logger {
	mu.RLock()
	l := baseLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	_ = Init("production")
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// Replace swaps the process logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := baseLogger
	baseLogger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		baseLogger = prev
		mu.Unlock()
	}
}

// Sync flushes buffered log entries. Call during shutdown.
func Sync() error {
	return Logger().Sync()
}

// Err reports initialization failure, if any.
func Err() error {
	mu.RLock()
	defer mu.RUnlock()
	return loggerErr
}
