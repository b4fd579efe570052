package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventsaga/internal/api"
	"eventsaga/internal/application/factories/infrastructure"
	"eventsaga/internal/config"
	redisInfra "eventsaga/internal/infrastructure/redis"
	"eventsaga/internal/usecase"
)

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

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var tracker usecase.StatusTracker
	if cfg.Products.TrackAsyncPublish {
		if redisClient == nil {
			logger.Error("async publish tracking needs redis")
			os.Exit(1)
		}
		tracker = redisInfra.NewPublishTracker(redisClient, cfg.Products.TrackTTL)
	}

	pub := infraFactory.Publisher()

	// UseCases
	createProductUC := usecase.NewCreateProduct(pub, tracker, cfg.Topics.ProductCreated, logger)
	getPublishStatusUC := usecase.NewGetPublishStatus(tracker)
	transferUC := usecase.NewTransfer(pub, infraFactory.Remote(), cfg.Topics.Withdraw, cfg.Topics.Deposit, logger)

	// REST API Handler
	handlers := api.NewHandlers(createProductUC, getPublishStatusUC, transferUC, logger)
	apiHandler := api.NewRouter(handlers, redisClient)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.HTTP.Port, "track_async_publish", cfg.Products.TrackAsyncPublish)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exiting")
}
