package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger writing to stderr. The level comes from the
// LOG_LEVEL environment variable; defaultLevel applies when it is unset.
// The client passes zap.WarnLevel so log lines don't fight the terminal UI,
// the relay server passes zap.InfoLevel.
func New(defaultLevel zapcore.Level) *zap.Logger {
	level := defaultLevel

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = zap.DebugLevel
		case "info":
			level = zap.InfoLevel
		case "warn", "warning":
			level = zap.WarnLevel
		case "error", "production", "prod":
			level = zap.ErrorLevel
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
