package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/failure"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
)

type State string

const (
	StateAttempting     State = "attempting"
	StateSucceeded      State = "succeeded"
	StateRetryScheduled State = "retry_scheduled"
	StateDeadLettered   State = "dead_lettered"
)

// Policy bounds retries of Retryable failures. MaxAttempts counts every attempt, the first one
// included.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: 5 * time.Second}
}

// Sleeper suspends the caller for d. It returns early with ctx's error on shutdown.
type Sleeper func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome is the terminal state of one delivery.
type Outcome struct {
	State    State
	Attempts int
	Result   failure.Result
}

type Processor interface {
	Consume(ctx context.Context, env event.Envelope) failure.Result
}

// Router drives one delivered message to a terminal state.
type Router struct {
	registry   *event.Registry
	processor  Processor
	deadLetter *DeadLetterer
	classifier *failure.Classifier
	policy     Policy
	sleep      Sleeper
	logger     *slog.Logger
}

type RouterConfig struct {
	Registry   *event.Registry
	Processor  Processor
	DeadLetter *DeadLetterer
	Classifier *failure.Classifier
	Policy     Policy
	Sleep      Sleeper
	Logger     *slog.Logger
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Registry == nil {
		cfg.Registry = event.NewRegistry()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = failure.NewClassifier()
	}
	if cfg.Policy.MaxAttempts < 1 {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		registry:   cfg.Registry,
		processor:  cfg.Processor,
		deadLetter: cfg.DeadLetter,
		classifier: cfg.Classifier,
		policy:     cfg.Policy,
		sleep:      cfg.Sleep,
		logger:     cfg.Logger,
	}
}

// Deliver runs msg through the pipeline with bounded retries and dead-letters it when it cannot
// succeed. A nil error means msg reached a terminal state and its offset may be committed. An
// error means shutdown interrupted the delivery and msg must be left uncommitted.
func (r *Router) Deliver(ctx context.Context, msg kafka.Message) (Outcome, error) {
	log := r.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	env, err := r.registry.Decode(event.Envelope{
		Key:       string(msg.Key),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Time:      msg.Time,
		Headers:   kafkaInfra.HeaderMap(msg.Headers),
		Body:      msg.Value,
	})
	if err != nil {
		// malformed messages never reach business logic and do not count as attempts
		res := r.classifier.Classify(err)
		log.Error("failed to decode message", "error", err)
		return r.toDeadLetter(ctx, msg, res, 0)
	}
	log = log.With("message_id", env.MessageID)

	for attempt := 1; ; attempt++ {
		res := r.processor.Consume(ctx, env)
		if res.OK() {
			messagesConsumed.WithLabelValues(msg.Topic).Inc()
			return Outcome{State: StateSucceeded, Attempts: attempt, Result: res}, nil
		}

		log.Warn("attempt failed",
			"attempt", attempt,
			"classification", res.Class.String(),
			"kind", res.Kind,
			"error", res.Err,
		)

		if res.Class != failure.Retryable || attempt >= r.policy.MaxAttempts {
			return r.toDeadLetter(ctx, msg, res, attempt)
		}

		retriesScheduled.WithLabelValues(msg.Topic).Inc()
		log.Info("retry scheduled", "attempt", attempt, "backoff", r.policy.Backoff)
		if err := r.sleep(ctx, r.policy.Backoff); err != nil {
			return Outcome{State: StateRetryScheduled, Attempts: attempt, Result: res}, err
		}
	}
}

func (r *Router) toDeadLetter(ctx context.Context, msg kafka.Message, res failure.Result, attempts int) (Outcome, error) {
	return Outcome{State: StateDeadLettered, Attempts: attempts, Result: res}, r.deadLetter.Send(ctx, msg, res, attempts)
}
