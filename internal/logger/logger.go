package logger

import (
	"strings"
	"sync"
)

// Log levels accepted by the log.level setting.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes the level;
// later calls return the same instance regardless of level.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = New(level)
	})
	return globalLogger
}

// New builds an independent logger, mainly for tests and tools.
func New(level string) *Logger {
	return newZapLogger(strings.ToLower(strings.TrimSpace(level)))
}
