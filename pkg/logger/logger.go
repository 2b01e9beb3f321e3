package logger

import (
	"go.uber.org/zap"
)

// Init builds a production logger at the given level ("debug", "info", ...).
func Init(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
