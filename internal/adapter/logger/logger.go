package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Debug(action, message, requestID string, details map[string]interface{})
	Info(action, message, requestID string, details map[string]interface{})
	Warn(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type Options struct {
	// File enables a rotating log file next to stdout when non-empty.
	File  string
	Level string
}

type slogLogger struct {
	base *slog.Logger
}

// New returns a JSON logger tagged with the service name. Every entry carries
// action, request_id and an optional details group.
func New(service string, opts Options) Logger {
	var w io.Writer = os.Stdout
	if opts.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		})
	}
	return NewWithWriter(service, w, opts.Level)
}

func NewWithWriter(service string, w io.Writer, level string) Logger {
	hostname, _ := os.Hostname()
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &slogLogger{
		base: slog.New(h).With("service", service, "hostname", hostname),
	}
}

// Nop discards everything. Used where logging is not under test.
func Nop() Logger {
	return &slogLogger{base: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *slogLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.log(slog.LevelDebug, action, message, requestID, details, nil)
}

func (l *slogLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.log(slog.LevelInfo, action, message, requestID, details, nil)
}

func (l *slogLogger) Warn(action, message, requestID string, details map[string]interface{}) {
	l.log(slog.LevelWarn, action, message, requestID, details, nil)
}

func (l *slogLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.log(slog.LevelError, action, message, requestID, details, err)
}

func (l *slogLogger) log(level slog.Level, action, message, requestID string, details map[string]interface{}, err error) {
	ctx := context.Background()
	if !l.base.Enabled(ctx, level) {
		return
	}

	attrs := []any{"action", action, "request_id", requestID}
	if len(details) > 0 {
		attrs = append(attrs, "details", details)
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error", "msg", err.Error()))
	}

	l.base.Log(ctx, level, message, attrs...)
}
