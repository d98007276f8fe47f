package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger appropriate for the environment. Development gets
// a human-readable console logger at debug level, everything else a JSON
// production logger at info level.
func New(env string) *zap.Logger {
	var cfg zap.Config

	switch env {
	case "local", "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		// A logger we cannot build leaves nothing to report with; fall back
		// to a no-op logger rather than panicking at startup.
		return zap.NewNop()
	}

	return log
}
