package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pgxpool "github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	go_redis "github.com/redis/go-redis/v9"

	"eventsaga/internal/config"
	"eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/infrastructure/postgres"
	"eventsaga/internal/infrastructure/redis"
	"eventsaga/internal/publisher"
	"eventsaga/internal/remote"
)

// Factory builds shared infrastructure lazily and closes whatever it built.
type Factory struct {
	cfg      *config.Config
	logger   *slog.Logger
	pgPool   *pgxpool.Pool
	redisCli *go_redis.Client
	producer *kafka.Producer
	pub      *publisher.Publisher
	groups   []*kafka.ConsumerGroup
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Factory) Config() *config.Config { return f.cfg }

func (f *Factory) Postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if f.pgPool != nil {
		return f.pgPool, nil
	}

	var pool *pgxpool.Pool
	var err error

	// Retry connection up to 5 times
	for i := 0; i < 5; i++ {
		pool, err = postgres.NewClient(ctx, postgres.Config{
			Host:     f.cfg.Postgres.Host,
			Port:     f.cfg.Postgres.Port,
			User:     f.cfg.Postgres.User,
			Password: f.cfg.Postgres.Password,
			DBName:   f.cfg.Postgres.DBName,
		})
		if err == nil {
			break
		}
		f.logger.Warn("failed to connect to postgres, retrying in 2s", "attempt", i+1, "max", 5, "error", err)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to init postgres after retries: %w", err)
	}

	f.pgPool = pool
	return pool, nil
}

// Redis returns nil without error when redis is disabled in config.
func (f *Factory) Redis(ctx context.Context) (*go_redis.Client, error) {
	if !f.cfg.Redis.Enabled {
		return nil, nil
	}
	if f.redisCli != nil {
		return f.redisCli, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Addr:         f.cfg.Redis.Addr,
		Password:     f.cfg.Redis.Password,
		DB:           f.cfg.Redis.DB,
		PoolSize:     f.cfg.Redis.PoolSize,
		DialTimeout:  f.cfg.Redis.DialTimeout,
		ReadTimeout:  f.cfg.Redis.ReadTimeout,
		WriteTimeout: f.cfg.Redis.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	f.redisCli = client
	return client, nil
}

func (f *Factory) Producer() *kafka.Producer {
	if f.producer == nil {
		f.producer = kafka.NewProducer(kafka.Config{
			Brokers:      f.cfg.Kafka.Brokers,
			RequiredAcks: f.cfg.Producer.RequiredAcks,
			MaxAttempts:  f.cfg.Producer.MaxAttempts,
			WriteTimeout: f.cfg.Producer.WriteTimeout,
			BatchTimeout: f.cfg.Producer.BatchTimeout,
		})
	}
	return f.producer
}

func (f *Factory) Publisher() *publisher.Publisher {
	if f.pub == nil {
		f.pub = publisher.New(f.Producer(), publisher.Config{
			MaxInFlight:     f.cfg.Producer.MaxInFlight,
			DeliveryTimeout: f.cfg.Producer.DeliveryTimeout,
		}, f.logger)
	}
	return f.pub
}

func (f *Factory) Remote() *remote.Client {
	return remote.NewClient(remote.Config{
		BaseURL:     f.cfg.Remote.BaseURL,
		SuccessPath: f.cfg.Remote.SuccessPath,
		Timeout:     f.cfg.Remote.Timeout,
	})
}

// ServeMetrics exposes /metrics on the configured port until ctx is done.
func (f *Factory) ServeMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + f.cfg.Metrics.Port, Handler: mux}

	go func() {
		f.logger.Info("metrics listening", "port", f.cfg.Metrics.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Close releases resources in dependency order: queued sends are flushed before the writer
// and the stores go away.
func (f *Factory) Close() {
	for _, g := range f.groups {
		if err := g.Close(); err != nil {
			f.logger.Error("failed to close consumer group", "error", err)
		}
	}
	if f.pub != nil {
		f.pub.Close()
	}
	if f.producer != nil {
		if err := f.producer.Close(); err != nil {
			f.logger.Error("failed to close kafka writer", "error", err)
		}
	}
	if f.pgPool != nil {
		f.pgPool.Close()
	}
	if f.redisCli != nil {
		f.redisCli.Close()
	}
}
