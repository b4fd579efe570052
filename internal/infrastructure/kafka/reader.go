package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// ReadDeadLetters reads every partition of topic concurrently from the earliest offset. A
// partition is done once it stays idle for the given duration. The result is ordered by
// partition, then offset, and holds at most limit messages.
func ReadDeadLetters(ctx context.Context, brokers []string, topic string, partitions, limit int, idle time.Duration) ([]kafka.Message, error) {
	if partitions < 1 || limit < 1 {
		return nil, nil
	}

	perPartition := make([][]kafka.Message, partitions)
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < partitions; p++ {
		g.Go(func() error {
			msgs, err := readPartition(gctx, brokers, topic, p, limit, idle)
			perPartition[p] = msgs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []kafka.Message
	for _, msgs := range perPartition {
		out = append(out, msgs...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func readPartition(ctx context.Context, brokers []string, topic string, partition, limit int, idle time.Duration) ([]kafka.Message, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   idle,
	})
	defer r.Close()

	if err := r.SetOffset(kafka.FirstOffset); err != nil {
		return nil, fmt.Errorf("seek %s/%d: %w", topic, partition, err)
	}

	var out []kafka.Message
	for len(out) < limit {
		readCtx, cancel := context.WithTimeout(ctx, idle)
		msg, err := r.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			return out, fmt.Errorf("read %s/%d: %w", topic, partition, err)
		}
		out = append(out, msg)
	}
	return out, nil
}
