package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Logger is the logging surface used by every component.
type Logger interface {
	SetLevel(levelStr string)

	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
	Fatal(msg string, err error, args ...any)
}

type SlogLogger struct {
	log   *slog.Logger
	level *slog.LevelVar
}

// New builds a logger fanning out to stdout (text) and a rotated
// JSON file under dataDir.
func New(dataDir string) *SlogLogger {
	l := &SlogLogger{level: &slog.LevelVar{}}
	l.level.Set(slog.LevelInfo)

	opts := &slog.HandlerOptions{
		Level: l.level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if level, ok := a.Value.Any().(slog.Level); ok {
					switch level {
					case LevelTrace:
						a.Value = slog.StringValue("TRACE")
					case LevelFatal:
						a.Value = slog.StringValue("FATAL")
					}
				}
			}
			return a
		},
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(dataDir, "logs", "ircbridge.log"),
		MaxSize:    32,
		MaxBackups: 8,
		MaxAge:     30,
		Compress:   true,
	}

	l.log = slog.New(
		multi.Fanout(
			slog.NewTextHandler(os.Stdout, opts),
			slog.NewJSONHandler(logFile, opts),
		),
	)

	return l
}

func (l *SlogLogger) SetLevel(levelStr string) {
	switch levelStr {
	case "trace":
		l.level.Set(LevelTrace)
	case "debug":
		l.level.Set(slog.LevelDebug)
	case "warn":
		l.level.Set(slog.LevelWarn)
	case "error":
		l.level.Set(slog.LevelError)
	default:
		l.level.Set(slog.LevelInfo)
	}
}

func (l *SlogLogger) Trace(msg string, args ...any) {
	l.log.Log(context.Background(), LevelTrace, msg, args...)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{slog.String("error", err.Error())}, args...)
	}
	l.log.Error(msg, args...)
}

func (l *SlogLogger) Fatal(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{slog.String("error", err.Error())}, args...)
	}
	l.log.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}
