// Package logger provides structured logging with context support.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "freshledger/internal/core/context"
)

// Logger wraps zap.SugaredLogger with context-aware logging.
type Logger struct {
	*zap.SugaredLogger
}

type (
	loggerKey struct{}
	fieldsKey struct{}
)

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoding with colors
	// Process is attached to every entry (server, worker, migrate, seed).
	Process     string
	OutputPaths []string
}

// New creates a new Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		config.OutputPaths = cfg.OutputPaths
	}
	config.InitialFields = map[string]any{"app": "freshledger"}
	if cfg.Process != "" {
		config.InitialFields["process"] = cfg.Process
	}

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &Logger{zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// Default is used when no logger was put into the context.
func Default() *Logger {
	defaultOnce.Do(func() {
		l, err := New(Config{Level: "info", OutputPaths: []string{"stdout"}})
		if err != nil {
			l = Nop()
		}
		defaultLogger = l
	})
	return defaultLogger
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// WithContext adds the request ids, the operator and any fields scoped with
// WithFields.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sugar := l.SugaredLogger

	if trace := appctx.GetTrace(ctx); trace != nil {
		sugar = sugar.With(
			"trace_id", trace.TraceID,
			"request_id", trace.RequestID,
		)
	}

	if user := appctx.GetUser(ctx); user != nil {
		sugar = sugar.With("user_id", user.UserID, "operator", user.Username)
	}

	if fields := scopedFields(ctx); len(fields) > 0 {
		sugar = sugar.With(fields...)
	}

	return &Logger{sugar}
}

// With adds key-value pairs to logger.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithComponent adds component name to logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.SugaredLogger.With("component", name)}
}

// --- Context-based logger access ---

// WithLogger adds Logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields returns a context whose log entries carry keysAndValues, e.g. the
// purchase being reconciled. Fields accumulate across nested calls.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) == 0 {
		return ctx
	}
	prev := scopedFields(ctx)
	fields := make([]any, 0, len(prev)+len(keysAndValues))
	fields = append(fields, prev...)
	fields = append(fields, keysAndValues...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func scopedFields(ctx context.Context) []any {
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

// FromContext returns Logger from context or default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l.WithContext(ctx)
	}
	return Default().WithContext(ctx)
}

// Debug, Info, Warn and Error log through the context's logger.
func Debug(ctx context.Context, msg string, kv ...any) {
	FromContext(ctx).Logw(zapcore.DebugLevel, msg, kv...)
}
func Info(ctx context.Context, msg string, kv ...any) {
	FromContext(ctx).Logw(zapcore.InfoLevel, msg, kv...)
}
func Warn(ctx context.Context, msg string, kv ...any) {
	FromContext(ctx).Logw(zapcore.WarnLevel, msg, kv...)
}
func Error(ctx context.Context, msg string, kv ...any) {
	FromContext(ctx).Logw(zapcore.ErrorLevel, msg, kv...)
}

// Sync flushes buffered entries; call on shutdown.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}
