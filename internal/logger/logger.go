package logger

import (
	"go.uber.org/zap"
)

var Logger *zap.Logger

// InitLogger initializes the global logger
func InitLogger(debug bool) error {
	var config zap.Config

	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	Logger = logger
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if Logger == nil {
		// Fallback to a no-op logger if not initialized
		Logger = zap.NewNop()
	}
	return Logger
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		// Sync can fail on some platforms (stderr on Linux, for one);
		// there is nothing useful to do with the error.
		_ = Logger.Sync()
	}
}
