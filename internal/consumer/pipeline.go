package consumer

import (
	"context"
	"log/slog"
	"time"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/domain/processed"
	"eventsaga/internal/failure"
	"eventsaga/internal/infrastructure/postgres"
)

type Ledger interface {
	Exists(ctx context.Context, messageID string) (bool, error)
	Insert(ctx context.Context, e *processed.Entry) error
}

// LedgerCache is an optional fast path in front of the Ledger. It may forget entries; the
// Ledger stays authoritative.
type LedgerCache interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// Pipeline turns at-least-once delivery into effectively-once processing.
type Pipeline struct {
	name       string
	dispatcher *Dispatcher
	ledger     Ledger
	cache      LedgerCache
	tx         postgres.Transactor
	classifier *failure.Classifier
	logger     *slog.Logger
}

type PipelineConfig struct {
	// Name identifies the consumer in ledger entries and logs.
	Name       string
	Dispatcher *Dispatcher
	Ledger     Ledger
	Cache      LedgerCache
	Tx         postgres.Transactor
	Classifier *failure.Classifier
	Logger     *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Classifier == nil {
		cfg.Classifier = failure.NewClassifier()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		name:       cfg.Name,
		dispatcher: cfg.Dispatcher,
		ledger:     cfg.Ledger,
		cache:      cfg.Cache,
		tx:         cfg.Tx,
		classifier: cfg.Classifier,
		logger:     cfg.Logger.With("consumer", cfg.Name),
	}
}

// Consume processes env unless its messageId is already in the ledger. Business logic and the
// ledger insert share one transaction, business logic first.
func (p *Pipeline) Consume(ctx context.Context, env event.Envelope) failure.Result {
	log := p.logger.With("message_id", env.MessageID, "topic", env.Topic, "partition", env.Partition, "offset", env.Offset)

	done, err := p.processed(ctx, env.MessageID)
	if err != nil {
		return p.classifier.Classify(failure.Transport("ledger lookup", err))
	}
	if done {
		duplicatesSkipped.WithLabelValues(env.Topic).Inc()
		log.Info("message already processed, skipping")
		return failure.Result{}
	}

	handler, err := p.dispatcher.Handler(env.Type())
	if err != nil {
		return p.classifier.Classify(err)
	}

	started := time.Now()
	err = p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := handler.Handle(txCtx, env); err != nil {
			return err
		}
		return p.ledger.Insert(txCtx, &processed.Entry{
			MessageID:          env.MessageID,
			CorrelatedEntityID: env.Payload.CorrelationID(),
			Consumer:           p.name,
			EventType:          string(env.Type()),
		})
	})
	processingDuration.WithLabelValues(env.Topic).Observe(time.Since(started).Seconds())

	if err != nil {
		res := p.classifier.Classify(err)
		if res.Kind == failure.KindConstraintViolation {
			log.Warn("concurrent delivery already recorded this message", "error", err)
		}
		return res
	}

	if p.cache != nil {
		if err := p.cache.MarkSeen(ctx, env.MessageID); err != nil {
			log.Warn("failed to cache processed message", "error", err)
		}
	}

	log.Info("message processed", "event_type", env.Type(), "correlation_id", env.Payload.CorrelationID())
	return failure.Result{}
}

func (p *Pipeline) processed(ctx context.Context, messageID string) (bool, error) {
	if p.cache != nil {
		seen, err := p.cache.Seen(ctx, messageID)
		if err == nil && seen {
			return true, nil
		}
		if err != nil {
			p.logger.Warn("ledger cache unavailable, falling back to postgres", "error", err)
		}
	}
	return p.ledger.Exists(ctx, messageID)
}
