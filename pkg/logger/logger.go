package logger

import (
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

// Logger wraps zap.Logger
type Logger struct {
	*zap.Logger
}

var (
	global *Logger
	initMu sync.Mutex
)

// Init initializes the global logger
func Init(cfg *Config) error {
	initMu.Lock()
	defer initMu.Unlock()

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	base, err := zapCfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return err
	}

	global = &Logger{base.With(zap.String("service", cfg.ServiceName))}
	return nil
}

// Get returns the global logger. Falls back to a no-op logger so library
// code never has to nil-check.
func Get() *Logger {
	initMu.Lock()
	defer initMu.Unlock()
	if global == nil {
		global = &Logger{zap.NewNop()}
	}
	return global
}

// Sync flushes buffered log entries
func Sync() {
	if global != nil {
		_ = global.Logger.Sync()
	}
}
