// SPDX-License-Identifier: MIT
// Package log provides a minimal leveled logger over the standard library
// logger. The level is stored atomically so audio-callback and scheduler
// goroutines can log without coordination.
package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var currentLevel atomic.Uint32

var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func logf(level LogLevel, format string, v ...any) {
	if !shouldLog(level) {
		return
	}
	logger.Output(3, fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, v...)))
}

// Debugf logs a message at LevelDebug.
func Debugf(format string, v ...any) { logf(LevelDebug, format, v...) }

// Infof logs a message at LevelInfo.
func Infof(format string, v ...any) { logf(LevelInfo, format, v...) }

// Warnf logs a message at LevelWarn.
func Warnf(format string, v ...any) { logf(LevelWarn, format, v...) }

// Errorf logs a message at LevelError.
func Errorf(format string, v ...any) { logf(LevelError, format, v...) }

// Fatalf logs a message at LevelFatal and exits the process.
func Fatalf(format string, v ...any) {
	logf(LevelFatal, format, v...)
	os.Exit(1)
}
