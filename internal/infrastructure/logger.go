package infrastructure

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *zap.Logger
)

// Init builds the process-wide logger at the configured level. Unknown
// level strings fall back to info.
func Init(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	Logger, _ = cfg.Build()
	Logger.Info("logger ready",
		zap.String("service", "upbit-backtester"),
		zap.String("level", lvl.String()))
}
