package utils

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log   *zap.Logger
	once  sync.Once
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// InitLogger initializes the global logger instance. Logs go to the given
// output paths (e.g. "stderr" or a log file), stdout when none are given.
// The first call picks the outputs; every call sets the level.
func InitLogger(debug bool, outputs ...string) *zap.Logger {
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}

	once.Do(func() {
		config := zap.NewProductionConfig()
		config.Level = level

		config.OutputPaths = []string{"stdout"}
		if len(outputs) > 0 {
			config.OutputPaths = outputs
		}
		config.ErrorOutputPaths = []string{"stderr"}

		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.StacktraceKey = "stacktrace"

		logger, err := config.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		if err != nil {
			panic(err)
		}

		log = logger.Named("triscan")
	})

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(false)
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
