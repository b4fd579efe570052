package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// StartOffset applies when the group has no committed offset: "earliest" (default) or "latest".
	StartOffset string
}

// Assignment is one partition owned by this member for the lifetime of a generation.
type Assignment struct {
	Topic     string
	Partition int
	// Offset is the next offset to read.
	Offset int64
}

// PartitionReader reads a single partition.
type PartitionReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Generation is one group membership epoch. Its context ends on rebalance or group close.
type Generation interface {
	ID() int32
	Assignments() []Assignment
	// Start runs fn in a goroutine bound to the generation; Next on the group does not return
	// until every started fn has returned.
	Start(fn func(ctx context.Context))
	Open(a Assignment) (PartitionReader, error)
	// Commit marks msg as processed for its partition.
	Commit(msg kafka.Message) error
}

// ConsumerGroup joins a consumer group on one topic and hands out its generations.
type ConsumerGroup struct {
	group       *kafka.ConsumerGroup
	brokers     []string
	dialer      *kafka.Dialer
	startOffset int64
}

func NewConsumerGroup(cfg ConsumerConfig) (*ConsumerGroup, error) {
	startOffset := kafka.FirstOffset
	if strings.EqualFold(strings.TrimSpace(cfg.StartOffset), "latest") {
		startOffset = kafka.LastOffset
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: false, // Force IPv4
	}

	group, err := kafka.NewConsumerGroup(kafka.ConsumerGroupConfig{
		ID:                    cfg.GroupID,
		Brokers:               cfg.Brokers,
		Dialer:                dialer,
		Topics:                []string{cfg.Topic},
		StartOffset:           startOffset,
		WatchPartitionChanges: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer group %s: %w", cfg.GroupID, err)
	}

	return &ConsumerGroup{group: group, brokers: cfg.Brokers, dialer: dialer, startOffset: startOffset}, nil
}

// Next blocks until the next generation starts.
func (c *ConsumerGroup) Next(ctx context.Context) (Generation, error) {
	gen, err := c.group.Next(ctx)
	if err != nil {
		return nil, err
	}
	return &generation{gen: gen, group: c}, nil
}

func (c *ConsumerGroup) Close() error {
	return c.group.Close()
}

type generation struct {
	gen   *kafka.Generation
	group *ConsumerGroup
}

func (g *generation) ID() int32 { return g.gen.ID }

func (g *generation) Assignments() []Assignment {
	var out []Assignment
	for topic, parts := range g.gen.Assignments {
		for _, p := range parts {
			offset := p.Offset
			// no committed offset yet
			if offset < 0 {
				offset = g.group.startOffset
			}
			out = append(out, Assignment{Topic: topic, Partition: p.ID, Offset: offset})
		}
	}
	return out
}

func (g *generation) Start(fn func(ctx context.Context)) { g.gen.Start(fn) }

func (g *generation) Open(a Assignment) (PartitionReader, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   g.group.brokers,
		Topic:     a.Topic,
		Partition: a.Partition,
		MinBytes:  1,    // Process immediately
		MaxBytes:  10e6, // 10MB
		MaxWait:   1 * time.Second,
		Dialer:    g.group.dialer,
	})
	if err := r.SetOffset(a.Offset); err != nil {
		r.Close()
		return nil, fmt.Errorf("seek %s/%d to %d: %w", a.Topic, a.Partition, a.Offset, err)
	}
	return r, nil
}

func (g *generation) Commit(msg kafka.Message) error {
	return g.gen.CommitOffsets(map[string]map[int]int64{
		msg.Topic: {msg.Partition: msg.Offset + 1},
	})
}
