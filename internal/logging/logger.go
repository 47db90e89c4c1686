// Package logging provides structured logging for the lastmile routing
// service. The service logger emits one JSON or key=value line per entry;
// a zapcore adapter lets the solver engine log through it with typed
// fields.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Level is the severity of a log entry. The numbering follows zapcore so
// the adapter can translate levels without a lookup table.
type Level int8

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs need attention eventually, not individually.
	WarnLevel
	// ErrorLevel logs indicate a failed operation.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int8(l))
	}
}

// ParseLevel converts a level name to a Level. The empty string means
// InfoLevel.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO", "":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Format selects the output encoding.
type Format string

const (
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
	// FormatText emits human-readable key=value lines.
	FormatText Format = "text"
)

// Logger represents an active logging object. Derived loggers share the
// output writer and carry accumulated fields.
type Logger struct {
	level  Level
	format Format
	output io.Writer
	fields map[string]interface{}
}

// New creates a JSON logger with the given minimum level and output.
func New(level Level, output io.Writer) *Logger {
	return newLogger(level, FormatJSON, output)
}

func newLogger(level Level, format Format, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a new Logger that carries the given fields on every
// entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: merged,
	}
}

// WithField returns a new Logger carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a new Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

func (l *Logger) shouldLog(level Level) bool {
	return level >= l.level
}

// log writes one entry. Field values passed here override the logger's
// accumulated fields, which in turn override the computed caller.
func (l *Logger) log(level Level, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	all := make(map[string]interface{}, len(l.fields)+len(fields)+1)
	all["caller"] = callerShort(3)
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	switch l.format {
	case FormatText:
		l.writeText(ts, level, msg, all)
	default:
		l.writeJSON(ts, level, msg, all)
	}

	if level == FatalLevel {
		os.Exit(1)
	}
}

func (l *Logger) writeJSON(ts string, level Level, msg string, fields map[string]interface{}) {
	entry := make(map[string]interface{}, len(fields)+3)
	entry["timestamp"] = ts
	entry["level"] = level.String()
	entry["message"] = msg
	for k, v := range fields {
		entry[k] = v
	}

	data, err := json.Marshal(entry)
	if err != nil {
		// Some field failed to marshal; keep the line rather than drop it.
		fmt.Fprintf(l.output, "%s [%s] %s: %+v\n", ts, level, msg, fields)
		return
	}
	data = append(data, '\n')
	_, _ = l.output.Write(data)
}

func (l *Logger) writeText(ts string, level Level, msg string, fields map[string]interface{}) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s %s", ts, level, msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, fields[k])
	}
	buf.WriteByte('\n')
	_, _ = l.output.Write(buf.Bytes())
}

// callerShort returns "pkg/file.go:line" for the given call depth.
func callerShort(depth int) string {
	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "???"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, firstOrNil(fields))
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, firstOrNil(fields))
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, firstOrNil(fields))
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, firstOrNil(fields))
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, firstOrNil(fields))
}

func firstOrNil(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// CtxLogger is a logger carried in a request context.
type CtxLogger struct {
	*Logger
}

type ctxLoggerKey struct{}

// FromContext returns the logger stored in ctx, or a default stderr logger
// when none was attached.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a new context carrying the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}
