// Package logging provides a simple leveled logger for the BMP decode service.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Format selects how log lines are rendered.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Logger provides leveled logging
type Logger struct {
	level  Level
	format Format
	mu     sync.RWMutex
	logger *log.Logger
	now    func() time.Time
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a logger writing to w at the given level.
func New(w io.Writer, level Level, format Format) *Logger {
	l := &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags|log.LUTC),
		now:    time.Now,
	}
	l.SetFormat(format)
	return l
}

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stderr, LevelInfo, FormatText)
	})
	return defaultLogger
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// ParseLevel maps a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

// SetLevelFromString sets the log level from a string
func (l *Logger) SetLevelFromString(levelStr string) {
	l.SetLevel(ParseLevel(levelStr))
}

// SetFormat switches between text and JSON-lines output.
// JSON lines carry their own timestamp, so the standard prefix is dropped.
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
	if format == FormatJSON {
		l.logger.SetFlags(0)
	} else {
		l.logger.SetFlags(log.LstdFlags | log.LUTC)
	}
}

// SetFormatFromString accepts "text" or "json"; anything else selects text.
func (l *Logger) SetFormatFromString(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		l.SetFormat(FormatJSON)
		return
	}
	l.SetFormat(FormatText)
}

// SetOutput redirects the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// GetLevelString returns the current log level as a string
func (l *Logger) GetLevelString() string {
	return levelNames[l.GetLevel()]
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.GetLevel()
}

type jsonLine struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.RLock()
	currentLevel := l.level
	outFormat := l.format
	l.mu.RUnlock()

	if level < currentLevel {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if outFormat == FormatJSON {
		line, err := json.Marshal(jsonLine{
			Time:  l.now().UTC().Format(time.RFC3339Nano),
			Level: levelNames[level],
			Msg:   msg,
		})
		if err != nil {
			l.logger.Printf("[%s] %s", levelNames[level], msg)
			return
		}
		l.logger.Print(string(line))
		return
	}

	l.logger.Printf("[%s] %s", levelNames[level], msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Package-level convenience functions

// Setup configures the default logger in one call; w may be nil to keep the current output.
func Setup(level, format string, w io.Writer) {
	l := Default()
	l.SetLevelFromString(level)
	l.SetFormatFromString(format)
	if w != nil {
		l.SetOutput(w)
	}
}

// SetLevel sets the default logger's level
func SetLevel(level Level) {
	Default().SetLevel(level)
}

// SetLevelFromString sets the default logger's level from a string
func SetLevelFromString(levelStr string) {
	Default().SetLevelFromString(levelStr)
}

// GetLevelString returns the default logger's level as a string
func GetLevelString() string {
	return Default().GetLevelString()
}

// Debug logs a debug message to the default logger
func Debug(format string, args ...interface{}) {
	Default().Debug(format, args...)
}

// Info logs an info message to the default logger
func Info(format string, args ...interface{}) {
	Default().Info(format, args...)
}

// Warn logs a warning message to the default logger
func Warn(format string, args ...interface{}) {
	Default().Warn(format, args...)
}

// Error logs an error message to the default logger
func Error(format string, args ...interface{}) {
	Default().Error(format, args...)
}
