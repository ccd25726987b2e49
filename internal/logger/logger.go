package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global logger instance
	Logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "glowup"})
)

// Config holds logger configuration
type Config struct {
	Level string
	// File enables a rotating log file next to stderr output.
	File string
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	var writer io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    level == log.DebugLevel,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "glowup",
	})

	return nil
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	Logger.Helper()
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	Logger.Helper()
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	Logger.Helper()
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	Logger.Helper()
	Logger.Error(msg, keyvals...)
}

// Fatal logs a fatal error and exits
func Fatal(msg string, keyvals ...interface{}) {
	Logger.Helper()
	Logger.Fatal(msg, keyvals...)
	os.Exit(1)
}
