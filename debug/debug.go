// Package debug carries a structured logger in the context so that request
// scoped attributes (document URI, run index, provider) follow a lint run
// through the server.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Level int

const (
	_ Level = iota
	Error
	Warning
	Info
	Debug
	Trace
)

// LevelTrace sits below slog.LevelDebug for very chatty output such as raw
// linter output.
const LevelTrace = slog.LevelDebug - 4

type loggerCtx int

const (
	loggerCtxKey = loggerCtx(iota)
)

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// Logger returns the logger carried by ctx, or slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case Error:
		return slog.LevelError
	case Warning:
		return slog.LevelWarn
	case Info:
		return slog.LevelInfo
	case Debug:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

func (l Level) Log(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Log(ctx, l.slogLevel(), msg, args...)
}

// Detach drops the logger carried by ctx, falling back to slog.Default.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerCtxKey, nil)
}

func LogError(ctx context.Context, msg string, err error) {
	Logger(ctx).Log(ctx, slog.LevelError, msg, slog.Any("error", err))
}

func WithGroup(ctx context.Context, name string) (context.Context, *slog.Logger) {
	logger := Logger(ctx).WithGroup(name)
	return WithLogger(ctx, logger), logger
}

func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := Logger(ctx).With(args...)
	return WithLogger(ctx, logger), logger
}

// Start logs the beginning of an operation and returns a func that logs its
// end together with the elapsed time.
func Start(ctx context.Context, name string, args ...any) (context.Context, func()) {
	logger := Logger(ctx).With(slog.String("op", name))
	ctx = WithLogger(ctx, logger)
	logger.Log(ctx, slog.LevelDebug, fmt.Sprintf("%s starting", name), args...)
	start := time.Now()

	return ctx, func() {
		done := append(args, slog.Duration("elapsed", time.Since(start)))
		logger.Log(ctx, slog.LevelDebug, fmt.Sprintf("%s done", name), done...)
	}
}
