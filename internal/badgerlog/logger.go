// Package badgerlog adapts a standard library logger to badger's Logger
// interface with a level filter.
package badgerlog

import (
	"fmt"
	"log"
	"strings"
)

// Badger does not expose its default logger, so the cache gets its own.

type Level uint8

const (
	NoLogging Level = iota
	ErrorLevel
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelNames = [...]string{
	NoLogging:    "none",
	ErrorLevel:   "error",
	WarningLevel: "warning",
	InfoLevel:    "info",
	DebugLevel:   "debug",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", l)
}

// ParseLevel parses a level name. An empty string is WarningLevel.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return WarningLevel, nil
	}

	for level, name := range levelNames {
		if name == s {
			return Level(level), nil
		}
	}

	return NoLogging, fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	*log.Logger
	level Level
}

// NewStdLogger creates a logger writing to the standard logger.
func NewStdLogger(level Level) *Logger {
	return NewLogger(log.Default(), level)
}

func NewLogger(log *log.Logger, level Level) *Logger {
	return &Logger{
		Logger: log,
		level:  level,
	}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l.level >= level {
		l.Printf("badger: "+level.String()+": "+strings.TrimSuffix(format, "\n"), args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(ErrorLevel, format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logf(WarningLevel, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(InfoLevel, format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(DebugLevel, format, args...)
}
