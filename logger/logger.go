// Package logger is the process-wide leveled logger. Console output is
// colored, the optional file sink is not.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// levelPrefix is the padded tag printed in front of each line.
var levelPrefix = map[LogLevel]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO]  ",
	WARN:  "[WARN]  ",
	ERROR: "[ERROR] ",
}

var levelColor = map[LogLevel]string{
	DEBUG: colorGray,
	INFO:  colorReset,
	WARN:  colorYellow,
	ERROR: colorRed,
}

type Logger struct {
	console  map[LogLevel]*log.Logger
	plain    map[LogLevel]*log.Logger
	file     *os.File
	consoleW io.Writer
	fileW    io.Writer
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.RWMutex
)

// ensureInitialized creates a console logger at INFO if Init was never called.
func ensureInitialized() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger == nil {
			defaultLogger = &Logger{consoleW: os.Stdout, minLevel: INFO}
			defaultLogger.setupLoggers()
		}
	})
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a
// LogLevel. Unknown names yield INFO and an error.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", name)
	}
}

// Init initializes the logger with optional file and console output.
// If filename is empty, logs only to console.
// If console is false, logs only to file.
func Init(filename string, console bool, level LogLevel) error {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
	}

	l := &Logger{minLevel: level}

	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		l.fileW = file
	}

	if console {
		l.consoleW = os.Stdout
	}

	if l.fileW == nil && l.consoleW == nil {
		return fmt.Errorf("no output destination specified")
	}

	l.setupLoggers()
	defaultLogger = l
	return nil
}

// SetLevel sets the minimum log level. Messages below it are dropped.
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger != nil {
		defaultLogger.minLevel = level
	}
}

// SetOutput redirects console output, e.g. to io.Discard while a progress
// bar owns the terminal. A nil writer disables console output.
func SetOutput(w io.Writer) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = &Logger{minLevel: INFO}
	}
	defaultLogger.consoleW = w
	defaultLogger.setupLoggers()
}

func (l *Logger) setupLoggers() {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	l.console = nil
	l.plain = nil

	if l.consoleW != nil {
		l.console = make(map[LogLevel]*log.Logger, len(levelPrefix))
		for lvl, prefix := range levelPrefix {
			l.console[lvl] = log.New(l.consoleW, levelColor[lvl]+prefix+colorReset, flags)
		}
	}

	if l.fileW != nil {
		l.plain = make(map[LogLevel]*log.Logger, len(levelPrefix))
		for lvl, prefix := range levelPrefix {
			l.plain[lvl] = log.New(l.fileW, prefix, flags)
		}
	}
}

// Close closes the log file if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.fileW = nil
		defaultLogger.plain = nil
	}
}

func output(level LogLevel, msg string) {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	l := defaultLogger
	if l == nil || level < l.minLevel {
		return
	}
	// depth 3: output -> exported helper -> caller
	if lg := l.console[level]; lg != nil {
		lg.Output(3, msg)
	}
	if lg := l.plain[level]; lg != nil {
		lg.Output(3, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { output(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { output(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { output(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { output(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { output(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { output(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { output(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { output(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	output(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
