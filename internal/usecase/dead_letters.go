package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"eventsaga/internal/domain/deadletter"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/publisher"
)

// DeadLetterSource reads up to limit raw messages from a dead-letter topic.
type DeadLetterSource func(ctx context.Context, topic string, limit int) ([]kafka.Message, error)

type ListDeadLetters struct {
	source DeadLetterSource
}

func NewListDeadLetters(source DeadLetterSource) *ListDeadLetters {
	return &ListDeadLetters{source: source}
}

// Execute returns the parseable records of topic. Messages without dead-letter metadata are
// skipped.
func (uc *ListDeadLetters) Execute(ctx context.Context, topic string, limit int) ([]deadletter.Record, error) {
	msgs, err := uc.source(ctx, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}

	records := make([]deadletter.Record, 0, len(msgs))
	for _, m := range msgs {
		rec, err := deadletter.Parse(string(m.Key), m.Value, kafkaInfra.HeaderMap(m.Headers))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

type RawPublisher interface {
	PublishRaw(ctx context.Context, msg kafka.Message) (publisher.Receipt, error)
}

// ReplayDeadLetter puts a dead-lettered message back on its original topic. The original
// messageId travels with it, so a message that was in fact processed stays a no-op.
type ReplayDeadLetter struct {
	publisher RawPublisher
	logger    *slog.Logger
}

func NewReplayDeadLetter(pub RawPublisher, logger *slog.Logger) *ReplayDeadLetter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplayDeadLetter{publisher: pub, logger: logger}
}

func (uc *ReplayDeadLetter) Execute(ctx context.Context, rec deadletter.Record) (publisher.Receipt, error) {
	if rec.OriginalTopic == "" {
		return publisher.Receipt{}, errors.New("dead letter has no original topic")
	}

	receipt, err := uc.publisher.PublishRaw(ctx, kafka.Message{
		Topic:   rec.OriginalTopic,
		Key:     []byte(rec.Key),
		Value:   rec.Body,
		Headers: kafkaInfra.Headers(rec.OriginalHeaders()),
	})
	if err != nil {
		return publisher.Receipt{}, fmt.Errorf("replay to %s: %w", rec.OriginalTopic, err)
	}

	uc.logger.Info("dead letter replayed",
		"topic", rec.OriginalTopic,
		"message_id", receipt.MessageID,
		"original_offset", rec.OriginalOffset,
		"offset", receipt.Offset,
	)
	return receipt, nil
}
