package utils

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	*log.Logger
	level string
}

func NewLogger(level string) *Logger {
	return &Logger{Logger: log.New(os.Stderr, "", log.LstdFlags), level: level}
}

// NewFileLogger writes to the given path. The TUI owns the terminal while it
// runs, so interactive sessions log to a file under the data directory.
func NewFileLogger(level, path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: log.New(f, "", log.LstdFlags), level: level}, nil
}

func NewDiscardLogger() *Logger {
	return &Logger{Logger: log.New(io.Discard, "", 0), level: "info"}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.level == "debug" {
		l.Printf("DEBUG: "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.Printf("INFO: "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.Printf("WARN: "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Printf("ERROR: "+format, args...)
}
