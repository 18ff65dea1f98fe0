/*
Package logger
File: logger.go
Description:
    Thin wrapper around zap's SugaredLogger so every package logs with the same
    key/value call shape: log.Info("msg", "key", value, ...).
*/

package logger

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// ParseMode reports whether mode selects the production encoder. Accepted:
// "dev"/"development" (or empty) and "prod"/"production", case-insensitive.
func ParseMode(mode string) (production bool, err error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "dev", "development":
		return false, nil
	case "prod", "production":
		return true, nil
	default:
		return false, fmt.Errorf("logger: unknown mode %q", mode)
	}
}

// New builds a logger. Production emits JSON, development is the human
// readable encoder at debug level.
func New(mode string) (*Logger, error) {
	production, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// Writer exposes the logger as an io.Writer at info level, one entry per
// write. Used for the HTTP access log.
func (l *Logger) Writer() io.Writer {
	return zap.NewStdLog(l.SugaredLogger.Desugar()).Writer()
}
