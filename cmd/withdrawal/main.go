package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eventsaga/internal/application/factories/infrastructure"
	"eventsaga/internal/config"
	"eventsaga/internal/consumer"
	"eventsaga/internal/domain/event"
	"eventsaga/internal/usecase"
)

const groupID = "withdraw-money-events"

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	infraFactory.ServeMetrics(ctx)

	dispatcher := consumer.NewDispatcher().Register(event.TypeWithdrawalRequested, usecase.NewHandleWithdrawal(logger))

	pool, err := infraFactory.ConsumerPool(ctx, groupID, cfg.Topics.Withdraw, dispatcher)
	if err != nil {
		logger.Error("failed to build consumer", "error", err)
		os.Exit(1)
	}

	logger.Info("Withdrawal consumer started", "group_id", groupID, "topic", cfg.Topics.Withdraw)

	if err := pool.Run(ctx); err != nil {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Consumer exiting")
}
