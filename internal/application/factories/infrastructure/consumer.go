package infrastructure

import (
	"context"
	"fmt"

	"eventsaga/internal/consumer"
	"eventsaga/internal/domain/event"
	"eventsaga/internal/failure"
	"eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/infrastructure/postgres"
	"eventsaga/internal/infrastructure/redis"
	"eventsaga/internal/worker"
)

// ConsumerPool assembles the idempotent pipeline, the retry router and the partition pool for
// one consumer group on topic. Every assigned partition gets its own reader and worker.
func (f *Factory) ConsumerPool(ctx context.Context, groupID, topic string, dispatcher *consumer.Dispatcher) (*worker.Pool, error) {
	if topic == "" {
		return nil, fmt.Errorf("consumer %s: empty topic", groupID)
	}

	pgPool, err := f.Postgres(ctx)
	if err != nil {
		return nil, err
	}
	redisClient, err := f.Redis(ctx)
	if err != nil {
		return nil, err
	}

	var cache consumer.LedgerCache
	if redisClient != nil {
		cache = redis.NewLedgerCache(redisClient, f.cfg.Redis.LedgerTTL)
	}

	classifier := failure.NewClassifier()
	logger := f.logger.With("consumer", groupID)

	pipeline := consumer.NewPipeline(consumer.PipelineConfig{
		Name:       groupID,
		Dispatcher: dispatcher,
		Ledger:     postgres.NewLedgerRepository(pgPool),
		Cache:      cache,
		Tx:         postgres.NewTxManager(pgPool),
		Classifier: classifier,
		Logger:     logger,
	})

	router := consumer.NewRouter(consumer.RouterConfig{
		Registry:  event.NewRegistry(),
		Processor: pipeline,
		DeadLetter: consumer.NewDeadLetterer(consumer.DeadLettererConfig{
			Publisher: f.Publisher(),
			Topic:     f.cfg.Topics.DeadLetter,
			Logger:    logger,
		}),
		Classifier: classifier,
		Policy: consumer.Policy{
			MaxAttempts: f.cfg.Retry.MaxAttempts,
			Backoff:     f.cfg.Retry.Backoff,
		},
		Logger: logger,
	})

	group, err := kafka.NewConsumerGroup(kafka.ConsumerConfig{
		Brokers:     f.cfg.Kafka.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: f.cfg.Kafka.StartOffset,
	})
	if err != nil {
		return nil, err
	}
	f.groups = append(f.groups, group)

	return worker.New(group, router, worker.Config{}, logger), nil
}
