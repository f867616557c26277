package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string
	ServiceName string
	Development bool
}

var (
	mu     sync.RWMutex
	global *zap.Logger = zap.NewNop()
)

// Init builds the process-wide logger. Call once at startup.
func Init(cfg *Config) error {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	log, err := zapCfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.ServiceName != "" {
		log = log.With(zap.String("service", cfg.ServiceName))
	}

	mu.Lock()
	global = log
	mu.Unlock()
	return nil
}

// Get returns the process-wide logger. Safe before Init (returns a no-op).
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = global.Sync()
}
