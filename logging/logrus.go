package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

type LogrusLogger struct {
	entry *logrus.Entry
}

// New builds a logrus-backed Logger writing to out. level is any level name
// logrus understands; format is "json" or "text".
func New(out io.Writer, level, format string) (*LogrusLogger, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	case FormatText:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return &LogrusLogger{entry: logrus.NewEntry(l)}, nil
}

func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewNop returns a Logger that drops everything.
func NewNop() *LogrusLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewLogrusLogger(l)
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Debug(msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Info(msg)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Warn(msg)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.at(ctx, args).Error(msg)
}

func (l *LogrusLogger) With(args ...any) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(toFields(args))}
}

func (l *LogrusLogger) at(ctx context.Context, args []any) *logrus.Entry {
	e := l.entry
	if ctx != nil {
		e = e.WithContext(ctx)
		if id := RequestIDFromContext(ctx); id != "" {
			e = e.WithField("request_id", id)
		}
	}
	if len(args) > 0 {
		e = e.WithFields(toFields(args))
	}
	return e
}

// toFields pairs up args as key, value. A trailing key without a value is
// kept under "!BADKEY".
func toFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, isErr := args[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}
