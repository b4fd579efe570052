package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsaga/internal/consumer"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
)

// Group hands out generations one at a time; Next does not return a new generation before every
// worker of the previous one has returned.
type Group interface {
	Next(ctx context.Context) (kafkaInfra.Generation, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, msg kafka.Message) (consumer.Outcome, error)
}

type Config struct {
	// FetchBackoff is the pause after a failed fetch or a failed join.
	FetchBackoff time.Duration
}

// Pool binds one worker with its own partition reader to every partition assigned to this member,
// for the lifetime of the assignment. A partition is processed strictly in order by its worker;
// a worker waiting out a retry backoff never holds back another partition.
type Pool struct {
	group     Group
	deliverer Deliverer
	cfg       Config
	logger    *slog.Logger

	errOnce sync.Once
	err     error
}

func New(group Group, deliverer Deliverer, cfg Config, logger *slog.Logger) *Pool {
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{group: group, deliverer: deliverer, cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled, the group is closed or a worker fails. Messages in flight at
// shutdown are left uncommitted and will be redelivered.
func (p *Pool) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		gen, err := p.group.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrGroupClosed) {
				cancel()
				wg.Wait()
				return p.err
			}
			p.logger.Error("failed to join consumer group", "error", err)
			sleep(ctx, p.cfg.FetchBackoff)
			continue
		}

		assignments := gen.Assignments()
		p.logger.Info("generation started", "generation", gen.ID(), "partitions", len(assignments))

		for _, a := range assignments {
			wg.Add(1)
			gen.Start(func(genCtx context.Context) {
				defer wg.Done()

				workCtx, stop := context.WithCancel(genCtx)
				defer stop()
				release := context.AfterFunc(ctx, stop)
				defer release()

				if err := p.work(workCtx, gen, a); err != nil {
					p.fail(err)
					cancel()
				}
			})
		}
	}
}

func (p *Pool) fail(err error) {
	p.errOnce.Do(func() { p.err = err })
}

func (p *Pool) work(ctx context.Context, gen kafkaInfra.Generation, a kafkaInfra.Assignment) error {
	reader, err := gen.Open(a)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open %s/%d: %w", a.Topic, a.Partition, err)
	}
	defer reader.Close()

	p.logger.Info("partition worker started", "topic", a.Topic, "partition", a.Partition, "offset", a.Offset)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("failed to fetch message", "topic", a.Topic, "partition", a.Partition, "error", err)
			sleep(ctx, p.cfg.FetchBackoff)
			continue
		}

		out, err := p.deliverer.Deliver(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("deliver %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}

		if err := gen.Commit(msg); err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrGenerationEnded) {
				return nil
			}
			// the next commit on this partition covers this offset too
			p.logger.Error("failed to commit kafka message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}

		p.logger.Debug("message committed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"state", out.State,
			"attempt", out.Attempts,
		)
	}
}

// sleep waits for d and reports whether ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}
