package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsaga/internal/domain/deadletter"
	"eventsaga/internal/failure"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/publisher"
)

type RawPublisher interface {
	PublishRaw(ctx context.Context, msg kafka.Message) (publisher.Receipt, error)
}

// DeadLetterer copies a failed message to its dead-letter topic with the failure metadata.
type DeadLetterer struct {
	publisher     RawPublisher
	topic         func(source string) string
	retryInterval time.Duration
	sleep         Sleeper
	now           func() time.Time
	logger        *slog.Logger
}

type DeadLettererConfig struct {
	Publisher RawPublisher
	// Topic derives the dead-letter topic from the source topic.
	Topic         func(source string) string
	RetryInterval time.Duration
	Sleep         Sleeper
	Logger        *slog.Logger
}

func NewDeadLetterer(cfg DeadLettererConfig) *DeadLetterer {
	if cfg.Topic == nil {
		cfg.Topic = func(s string) string { return deadletter.Topic(s, "") }
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DeadLetterer{
		publisher:     cfg.Publisher,
		topic:         cfg.Topic,
		retryInterval: cfg.RetryInterval,
		sleep:         cfg.Sleep,
		now:           time.Now,
		logger:        cfg.Logger,
	}
}

// Send publishes msg to the dead-letter topic and keeps trying until it lands or ctx ends.
// Committing the source offset before the copy lands would lose the message.
func (d *DeadLetterer) Send(ctx context.Context, msg kafka.Message, res failure.Result, attempts int) error {
	failedAt := d.now().UTC()
	reason := ""
	if res.Err != nil {
		reason = res.Err.Error()
	}

	rec := deadletter.Record{
		OriginalTopic:     msg.Topic,
		OriginalPartition: msg.Partition,
		OriginalOffset:    msg.Offset,
		Key:               string(msg.Key),
		Headers:           kafkaInfra.HeaderMap(msg.Headers),
		Body:              msg.Value,
		Reason:            reason,
		FailureKind:       string(res.Kind),
		Classification:    res.Class.String(),
		AttemptCount:      attempts,
		FailedAt:          failedAt,
	}
	out := kafka.Message{
		Topic:   d.topic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: kafkaInfra.Headers(rec.WireHeaders()),
		Time:    failedAt,
	}

	log := d.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "dlt", out.Topic)

	for {
		receipt, err := d.publisher.PublishRaw(ctx, out)
		if err == nil {
			deadLettered.WithLabelValues(msg.Topic, string(res.Kind)).Inc()
			log.Error("message dead-lettered",
				"attempt", attempts,
				"classification", rec.Classification,
				"reason", reason,
				"dlt_partition", receipt.Partition,
				"dlt_offset", receipt.Offset,
			)
			return nil
		}

		log.Error("failed to publish to dead-letter topic", "error", err)
		if err := d.sleep(ctx, d.retryInterval); err != nil {
			return fmt.Errorf("dead-letter %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
	}
}
