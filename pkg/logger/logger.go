package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger. It is a no-op until Init runs so packages and
// tests can log unconditionally.
var Log = zap.NewNop()

func Init(level string, env string) error {
	logger, err := New(level, env)
	if err != nil {
		return err
	}

	Log = logger
	return nil
}

// New builds a logger without touching Log.
func New(level string, env string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
