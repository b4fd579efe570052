package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/domain/processed"
	"eventsaga/internal/failure"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/publisher"
)

type memLedger struct {
	mu      sync.Mutex
	entries map[string]*processed.Entry
	// insertErr, when set, is returned by Insert instead of storing the entry.
	insertErr error
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]*processed.Entry{}}
}

func (l *memLedger) Exists(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[id]
	return ok, nil
}

func (l *memLedger) Insert(_ context.Context, e *processed.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return l.insertErr
	}
	if _, ok := l.entries[e.MessageID]; ok {
		return failure.ConstraintViolation("insert processed event", errors.New("duplicate key"))
	}
	e.ID = int64(len(l.entries) + 1)
	l.entries[e.MessageID] = e
	return nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type passTx struct{ calls int }

func (t *passTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type memCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *memCache) Seen(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[id], nil
}

func (c *memCache) MarkSeen(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	c.seen[id] = true
	return nil
}

type capturePublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
	failures int
}

func (p *capturePublisher) PublishRaw(_ context.Context, msg kafka.Message) (publisher.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return publisher.Receipt{}, errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return publisher.Receipt{Topic: msg.Topic, Offset: int64(len(p.messages) - 1)}, nil
}

func (p *capturePublisher) sent() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.messages...)
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func productMessage(messageID string) kafka.Message {
	return kafka.Message{
		Topic:     "product-created-events",
		Partition: 1,
		Offset:    42,
		Key:       []byte("p1"),
		Value:     []byte(`{"productId":"p1","title":"Widget","price":9.99,"quantity":2}`),
		Headers: kafkaInfra.Headers(map[string]string{
			event.HeaderMessageID: messageID,
			event.HeaderEventType: string(event.TypeProductCreated),
		}),
	}
}
