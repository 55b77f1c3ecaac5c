package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logFile *os.File
	log     = newDiscardLogger()
	mu      sync.Mutex
	enabled = true
)

const (
	maxLogSize = 5 * 1024 * 1024 // 5MB
)

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init opens the log file at path. An empty path leaves logging off.
func Init(path string) error {
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create log directory: %w", err)
	}

	// Check if log file needs rotation
	if info, err := os.Stat(path); err == nil {
		if info.Size() > maxLogSize {
			oldPath := path + ".old"
			os.Remove(oldPath) // Remove old backup if exists
			os.Rename(path, oldPath)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	log.SetOutput(file)
	return nil
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		log.SetOutput(io.Discard)
		logFile.Close()
		logFile = nil
	}
}

// Disable disables logging (useful for tests)
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
}

// Enable enables logging
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
}

// Error logs an error message
func Error(format string, args ...any) {
	logf(logrus.ErrorLevel, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...any) {
	logf(logrus.WarnLevel, format, args...)
}

// Info logs an informational message
func Info(format string, args ...any) {
	logf(logrus.InfoLevel, format, args...)
}

func logf(level logrus.Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logFile == nil {
		return
	}
	log.Logf(level, format, args...)
}
