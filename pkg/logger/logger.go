package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
)

var buildConfig = func(cfg zap.Config) (*zap.Logger, error) {
	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// Init builds the process logger. env "production" selects JSON output.
func Init(level, env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := buildConfig(cfg)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	global = l
	mu.Unlock()
	return l, nil
}

// Get returns the process logger, falling back to a development logger.
func Get() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		dev, err := zap.NewDevelopment()
		if err != nil {
			dev = zap.NewNop()
		}
		global = dev
	}
	return global
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Get().Sync()
}
