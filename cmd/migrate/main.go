package main

import (
	"log/slog"
	"os"

	"eventsaga/internal/config"
	"eventsaga/internal/infrastructure/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := postgres.Migrate(cfg.Postgres.DSN()); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migrations applied", "database", cfg.Postgres.DBName)
}
