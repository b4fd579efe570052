package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/domain/product"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
)

type memWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	failOn   map[string]bool
}

func (w *memWriter) Write(_ context.Context, msg kafka.Message) (kafkaInfra.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn[msg.Topic] {
		return kafkaInfra.Receipt{}, errors.New("broker not available")
	}
	w.messages = append(w.messages, msg)
	return kafkaInfra.Receipt{
		Topic:     msg.Topic,
		Partition: 1,
		Offset:    int64(len(w.messages)),
		Timestamp: msg.Time,
		MessageID: kafkaInfra.HeaderValue(msg.Headers, event.HeaderMessageID),
	}, nil
}

func (w *memWriter) topics() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.messages))
	for _, m := range w.messages {
		out = append(out, m.Topic)
	}
	return out
}

func (w *memWriter) all() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

type mockAuthorizer struct{ mock.Mock }

func (m *mockAuthorizer) Authorize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockSaver struct{ mock.Mock }

func (m *mockSaver) Save(ctx context.Context, p *product.Product) error {
	return m.Called(ctx, p).Error(0)
}

type memTracker struct {
	mu       sync.Mutex
	statuses map[string][]product.PublishStatus
}

func (t *memTracker) Track(_ context.Context, id string, s product.PublishStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statuses == nil {
		t.statuses = map[string][]product.PublishStatus{}
	}
	t.statuses[id] = append(t.statuses[id], s)
	return nil
}

func (t *memTracker) Status(_ context.Context, id string) (product.PublishStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.statuses[id]
	if len(h) == 0 {
		return "", errors.New("not found")
	}
	return h[len(h)-1], nil
}
