// Package log provides the level-filtered logger used throughout the
// engine: a package-level default logger plus an indent counter so
// nested operations (manifest load -> catalog build -> behavior load)
// read as a call tree in the log output, the way the original
// altsound logger's indent/outdent calls did.
package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level defines the severity of a log message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone // suppresses all output
)

// String returns the string representation of the Level.
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
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a Level.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "NONE":
		return LevelNone, true
	default:
		return LevelInfo, false
	}
}

// Logger is a level-filtered logger with an optional file sink and
// console mirror, and a nesting indent applied to every line.
type Logger struct {
	mu      sync.Mutex
	level   atomic.Uint32
	indent  atomic.Int32
	console *stdlog.Logger
	file    *os.File
	fileLog *stdlog.Logger
}

// Default is the package-level logger used by the free functions
// below, mirroring the teacher's package-global logger convention.
var Default = New()

// New returns a Logger writing to stderr at LevelInfo with no file sink.
func New() *Logger {
	l := &Logger{
		console: stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds),
	}
	l.level.Store(uint32(LevelInfo))
	return l
}

// Configure sets the level, and optionally opens path as a file sink.
// If consoleEnable is false, console mirroring is disabled. Configure
// is idempotent; calling it again replaces the previous file sink.
func (l *Logger) Configure(path string, level Level, consoleEnable bool) error {
	l.SetLevel(level)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.fileLog = nil
	}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("log: open %s: %w", path, err)
		}
		l.file = f
		l.fileLog = stdlog.New(f, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
	}

	if !consoleEnable {
		l.console = nil
	} else if l.console == nil {
		l.console = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
	}

	return nil
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = nil
		return err
	}
	return nil
}

// SetLevel sets the minimum level that will be emitted.
func (l *Logger) SetLevel(level Level) { l.level.Store(uint32(level)) }

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() Level { return Level(l.level.Load()) }

func (l *Logger) shouldLog(level Level) bool { return level >= l.GetLevel() }

// Indent increases the nesting depth by one, returning a function that
// restores it; callers typically `defer l.Indent()()` around a scope.
func (l *Logger) Indent() func() {
	l.indent.Add(1)
	return func() { l.indent.Add(-1) }
}

func (l *Logger) write(level Level, msg string) {
	if !l.shouldLog(level) {
		return
	}
	depth := l.indent.Load()
	if depth < 0 {
		depth = 0
	}
	prefix := fmt.Sprintf("[%-5s]%s", level, strings.Repeat("  ", int(depth)))
	line := prefix + " " + msg

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console != nil {
		l.console.Print(line)
	}
	if l.fileLog != nil {
		l.fileLog.Print(line)
	}
}

func (l *Logger) Debugf(format string, v ...any) { l.write(LevelDebug, fmt.Sprintf(format, v...)) }
func (l *Logger) Infof(format string, v ...any)  { l.write(LevelInfo, fmt.Sprintf(format, v...)) }
func (l *Logger) Warnf(format string, v ...any)  { l.write(LevelWarn, fmt.Sprintf(format, v...)) }
func (l *Logger) Errorf(format string, v ...any) { l.write(LevelError, fmt.Sprintf(format, v...)) }

// --- package-level convenience wrappers over Default ---

func Configure(path string, level Level, consoleEnable bool) error {
	return Default.Configure(path, level, consoleEnable)
}
func SetLevel(level Level)           { Default.SetLevel(level) }
func GetLevel() Level                { return Default.GetLevel() }
func Indent() func()                 { return Default.Indent() }
func Debugf(format string, v ...any) { Default.Debugf(format, v...) }
func Infof(format string, v ...any)  { Default.Infof(format, v...) }
func Warnf(format string, v ...any)  { Default.Warnf(format, v...) }
func Errorf(format string, v ...any) { Default.Errorf(format, v...) }
