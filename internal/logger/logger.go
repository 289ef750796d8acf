package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values default to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for all logger implementations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

// TextLogger writes human-readable lines to a single destination.
type TextLogger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     *sync.Mutex
	file   *os.File
}

// NewStdoutLogger creates a logger that writes to stdout.
func NewStdoutLogger(level Level) *TextLogger {
	return &TextLogger{writer: os.Stdout, level: level, mu: &sync.Mutex{}}
}

// NewFileLogger creates a logger that appends to a file.
func NewFileLogger(path string, level Level) (*TextLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &TextLogger{writer: file, level: level, mu: &sync.Mutex{}, file: file}, nil
}

func (l *TextLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	allFields := append(append([]Field{}, l.fields...), fields...)

	var b strings.Builder
	for _, f := range allFields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}

	fmt.Fprintf(l.writer, "[%s] %s: %s%s\n", timestamp, level.String(), msg, b.String())
}

func (l *TextLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }
func (l *TextLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields...) }
func (l *TextLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields...) }
func (l *TextLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

func (l *TextLogger) WithFields(fields ...Field) Logger {
	return &TextLogger{
		writer: l.writer,
		level:  l.level,
		fields: append(append([]Field{}, l.fields...), fields...),
		mu:     l.mu,
		file:   l.file,
	}
}

// Close closes the underlying file, if any.
func (l *TextLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// MultiLogger composes multiple loggers together.
type MultiLogger struct {
	loggers []Logger
	fields  []Field
}

// NewMultiLogger creates a logger that writes to multiple destinations.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Debug(msg, append(m.fields, fields...)...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Info(msg, append(m.fields, fields...)...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Warn(msg, append(m.fields, fields...)...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Error(msg, append(m.fields, fields...)...)
	}
}

func (m *MultiLogger) WithFields(fields ...Field) Logger {
	newLoggers := make([]Logger, len(m.loggers))
	copy(newLoggers, m.loggers)
	return &MultiLogger{
		loggers: newLoggers,
		fields:  append(append([]Field{}, m.fields...), fields...),
	}
}

// NoopLogger discards everything. Useful for tests and quiet commands.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (n *NoopLogger) Debug(string, ...Field)     {}
func (n *NoopLogger) Info(string, ...Field)      {}
func (n *NoopLogger) Warn(string, ...Field)      {}
func (n *NoopLogger) Error(string, ...Field)     {}
func (n *NoopLogger) WithFields(...Field) Logger { return n }
