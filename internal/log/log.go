// Package log wraps logrus behind a narrow Logger interface so the rest of
// the daemon never imports the logging backend directly.
package log

import (
	"sync"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

// LoggerConfig configures the process-wide logger.
type LoggerConfig struct {
	Level   string           `mapstructure:"level"`
	Pattern string           `mapstructure:"pattern"`
	Time    string           `mapstructure:"time"`
	File    *FileAppenderOpt `mapstructure:"file"`
}

// DefaultConfig is used when the config file carries no logger section.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:   "info",
		Pattern: "%time [%level] %msg%field\n",
		Time:    "2006-01-02 15:04:05.000",
	}
}

var (
	mu     sync.RWMutex
	logger Logger = newAdapter(DefaultConfig())
)

// GetLogger returns the process logger. Safe before Init; falls back to the
// default console logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg.
func Init(cfg *LoggerConfig) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	mu.Lock()
	logger = newAdapter(cfg)
	mu.Unlock()
}
