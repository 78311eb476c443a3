package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-planner/internal/config"
)

// loadAppConfig loads the configuration and the logger it configures.
func loadAppConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := setupAppLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_backend", cfg.Queue.Backend)
	return cfg, log, nil
}
