package config

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a zap logger for a server.log_level value. "development"
// gives the human-readable console logger; anything else is a JSON
// production logger at that level.
func NewLogger(level string) (*zap.Logger, error) {
	if level == "development" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
