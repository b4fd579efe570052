package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/failure"
)

type Config struct {
	Brokers      []string
	RequiredAcks string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// Receipt is the broker acknowledgment of one written message.
type Receipt struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	MessageID string
}

// Producer writes to any topic through a single writer. The topic is taken from each message.
type Producer struct {
	writer   *kafka.Writer
	receipts sync.Map // messageId -> Receipt
}

func NewProducer(cfg Config) *Producer {
	p := &Producer{}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Millisecond
	}

	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            maxAttempts,
		RequiredAcks:           RequiredAcks(cfg.RequiredAcks),
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           batchTimeout,
		Async:                  false,
		AllowAutoTopicCreation: true,
		Completion:             p.complete,
	}

	return p
}

// RequiredAcks maps a config value to the kafka-go level. Unknown values mean all replicas.
func RequiredAcks(v string) kafka.RequiredAcks {
	switch strings.ToLower(v) {
	case "none", "0":
		return kafka.RequireNone
	case "one", "1":
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

// complete runs once per written batch, after the broker assigned partitions and offsets.
func (p *Producer) complete(messages []kafka.Message, err error) {
	if err != nil {
		return
	}
	for _, m := range messages {
		id := HeaderValue(m.Headers, event.HeaderMessageID)
		if id == "" {
			continue
		}
		p.receipts.Store(id, Receipt{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Timestamp: m.Time,
			MessageID: id,
		})
	}
}

// Write blocks until msg is acknowledged at the configured level. Any failure is a transport
// failure from the caller's point of view.
func (p *Producer) Write(ctx context.Context, msg kafka.Message) (Receipt, error) {
	id := HeaderValue(msg.Headers, event.HeaderMessageID)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.receipts.Delete(id)
		return Receipt{}, failure.Transport("write message", fmt.Errorf("failed to write message to %s: %w", msg.Topic, err))
	}

	if v, ok := p.receipts.LoadAndDelete(id); ok && id != "" {
		return v.(Receipt), nil
	}

	return Receipt{Topic: msg.Topic, Partition: -1, Offset: -1, Timestamp: msg.Time, MessageID: id}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
