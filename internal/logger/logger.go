// Package logger provides a leveled logger shared by the sync engine, the
// feedback coordinator and the CLI. Lines are written to a primary output and
// optionally mirrored into a log file, which is also the file the feedback
// coordinator attaches when the user asks for the application log.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is the most verbose log level.
	LevelDebug Level = iota
	// LevelInfo is the default log level.
	LevelInfo
	// LevelWarn is for recoverable problems such as a failed issue fetch.
	LevelWarn
	// LevelError is for error messages only.
	LevelError
)

// String returns the string representation of a log level.
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

type sink struct {
	mu       sync.Mutex
	level    Level
	output   io.Writer
	file     *os.File
	filePath string
}

var std = &sink{
	level:  LevelInfo,
	output: os.Stderr,
}

// SetLevel sets the minimum level written by every logger.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.level
}

// SetOutput sets the primary output writer. Mostly useful for tests.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.output = w
}

// SetLogFile opens path in append mode and mirrors every accepted line into it.
// A previously opened log file is closed first.
func SetLogFile(path string) error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
		std.filePath = ""
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	std.file = f
	std.filePath = path
	return nil
}

// LogFile returns the path of the mirrored log file, or "" when none is open.
func LogFile() string {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.filePath
}

// Close closes the log file if one is open.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
		std.filePath = ""
	}
}

func (s *sink) write(level Level, component, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	// 2006-01-02T15:04:05.000Z LEVEL [component] message
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	if component != "" {
		b.WriteString("[" + component + "] ")
	}
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')
	line := b.String()

	io.WriteString(s.output, line)
	if s.file != nil {
		io.WriteString(s.file, line)
	}
}

// Logger writes lines tagged with a component name.
type Logger struct {
	component string
}

// Named returns a logger whose lines carry the given component tag.
func Named(component string) *Logger {
	return &Logger{component: component}
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	std.write(LevelDebug, l.component, format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	std.write(LevelInfo, l.component, format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	std.write(LevelWarn, l.component, format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	std.write(LevelError, l.component, format, args...)
}

// Debug logs at debug level without a component tag.
func Debug(format string, args ...interface{}) {
	std.write(LevelDebug, "", format, args...)
}

// Info logs at info level without a component tag.
func Info(format string, args ...interface{}) {
	std.write(LevelInfo, "", format, args...)
}

// Warn logs at warn level without a component tag.
func Warn(format string, args ...interface{}) {
	std.write(LevelWarn, "", format, args...)
}

// Error logs at error level without a component tag.
func Error(format string, args ...interface{}) {
	std.write(LevelError, "", format, args...)
}

// ParseLevel converts a string to a Level.
// Accepts: debug, info, warn, error (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: valid levels are debug, info, warn, error", s)
	}
}
