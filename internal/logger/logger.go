// Package logger provides the process-wide structured logger.
package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is the type of keys used to carry log fields in a context.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
)

var (
	mu            sync.RWMutex
	defaultLogger *zap.Logger
)

// Init builds the default logger. format is "json" or "console".
func Init(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if strings.ToLower(format) == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set replaces the default logger. Tests use it with zaptest or observer.
func Set(l *zap.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Default returns the default logger, a no-op logger before Init.
func Default() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if defaultLogger == nil {
		return zap.NewNop()
	}
	return defaultLogger
}

// FromContext returns the default logger annotated with the request-scoped
// fields stored in ctx.
func FromContext(ctx context.Context) *zap.Logger {
	l := Default()
	if ctx == nil {
		return l
	}
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		l = l.With(zap.String("request_id", v))
	}
	if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
		l = l.With(zap.String("user_id", v))
	}
	return l
}

// WithContext stores a log field in ctx.
func WithContext(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}
