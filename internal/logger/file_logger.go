package logger

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the bot's file logger. Entries are printf-formatted lines
// with a timestamp and level tag; rotation is handled by lumberjack so
// long-running sessions do not grow a single unbounded file.
type Logger struct {
	pair   string
	writer *lumberjack.Logger
	logger *log.Logger
	mu     sync.Mutex
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a rotating file logger for one pair. An empty path
// defaults to logs/<pair>.log.
func NewLogger(pair, path string) (*Logger, error) {
	if path == "" {
		path = filepath.Join("logs", fmt.Sprintf("%s.log", pair))
	}

	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	l := &Logger{
		pair:   pair,
		writer: writer,
		logger: log.New(writer, "", 0),
	}
	l.writeSessionHeader(path)
	return l, nil
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 BAND TRADING SESSION STARTED
================================================================================
Pair: %s
Started: %s
Log File: %s
================================================================================
`, l.pair, time.Now().Format("2006-01-02 15:04:05"), path)

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs an executed or simulated fill
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs per-tick market status
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogTickStatus logs the band view of one tick.
func (l *Logger) LogTickStatus(mid, center, lower, upper float64, action, reason string) {
	l.Status("mid=%.6f center=%.6f band=[%.6f, %.6f] action=%s reason=%s",
		mid, center, lower, upper, action, reason)
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer.Close()
}
