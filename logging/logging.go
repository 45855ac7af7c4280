// Package logging initializes the process-wide zap logger. All components
// receive a *zap.Logger explicitly; nothing reads an ambient global.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON production logger. Level defaults to info and can be
// lowered with LOG_LEVEL=debug.
func New() *zap.Logger {
	level := zap.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zapcore.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Building the default production config only fails on bad
		// output paths, which we do not set.
		panic(err)
	}
	return logger
}

// WithRequestID returns a child logger tagged with the request id.
func WithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(zap.String("request_id", requestID))
}
