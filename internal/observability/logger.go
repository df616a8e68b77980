package observability

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the base logger.
type Config struct {
	Level       string `env:"LOG_LEVEL"       envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// The base logger is process wide; request values travel in the context.
//
//nolint:gochecknoglobals // Process wide logger
var (
	globalLogger *zap.Logger
	loggerMu     sync.RWMutex
)

// InitLogger initializes the base logger (called once at startup).
func InitLogger(cfg *Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg != nil && cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg != nil && cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetLogger(logger)

	return logger, nil
}

// SetLogger replaces the global base logger.
func SetLogger(logger *zap.Logger) {
	loggerMu.Lock()
	globalLogger = logger
	loggerMu.Unlock()
}

// getBaseLogger returns the global logger instance.
func getBaseLogger() *zap.Logger {
	loggerMu.RLock()
	logger := globalLogger
	loggerMu.RUnlock()

	if logger == nil {
		logger = zap.NewNop()
	}

	return logger
}

// logFields names the context values copied onto every request logger.
//
//nolint:gochecknoglobals // Static table
var logFields = []struct {
	key  fieldKey
	name string
}{
	{traceIDKey, "trace_id"},
	{spanIDKey, "span_id"},
	{requestIDKey, "request_id"},
	{providerKey, "provider"},
	{modelKey, "model"},
	{conversationIDKey, "conversation_id"},
}

// FromContext returns the base logger annotated with the request values
// present in ctx.
func FromContext(ctx context.Context) *zap.Logger {
	logger := getBaseLogger()
	if ctx == nil {
		return logger
	}

	fields := make([]zap.Field, 0, len(logFields))
	for _, f := range logFields {
		if value := field(ctx, f.key); value != "" {
			fields = append(fields, zap.String(f.name, value))
		}
	}

	return logger.With(fields...)
}
