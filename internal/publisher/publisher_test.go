package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsaga/internal/domain/event"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	fail     func(kafka.Message) error
	delay    time.Duration
	// gate, when set, holds every write until it is closed.
	gate chan struct{}
	// resend makes every write land twice, as when the broker acknowledgment of the first attempt
	// is lost and the writer retries the same bytes.
	resend bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (w *fakeWriter) Write(ctx context.Context, msg kafka.Message) (kafkaInfra.Receipt, error) {
	n := w.inFlight.Add(1)
	defer w.inFlight.Add(-1)
	for {
		m := w.maxInFlight.Load()
		if n <= m || w.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return kafkaInfra.Receipt{}, ctx.Err()
		}
	}
	if w.gate != nil {
		select {
		case <-w.gate:
		case <-ctx.Done():
			return kafkaInfra.Receipt{}, ctx.Err()
		}
	}
	if w.fail != nil {
		if err := w.fail(msg); err != nil {
			return kafkaInfra.Receipt{}, err
		}
	}
	if w.resend {
		w.mu.Lock()
		w.messages = append(w.messages, msg)
		w.mu.Unlock()
		time.Sleep(time.Millisecond)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msg)
	return kafkaInfra.Receipt{
		Topic:     msg.Topic,
		Partition: 0,
		Offset:    int64(len(w.messages) - 1),
		Timestamp: msg.Time,
		MessageID: kafkaInfra.HeaderValue(msg.Headers, event.HeaderMessageID),
	}, nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

func product(id string, qty int) event.ProductCreated {
	return event.ProductCreated{ProductID: id, Title: "Widget", Price: decimal.RequireFromString("9.99"), Quantity: qty}
}

func TestPublish_ReturnsReceipt(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, Config{MaxInFlight: 5}, nil)
	defer p.Close()

	r, err := p.Publish(context.Background(), "product-created-events", "p1", product("p1", 2))
	require.NoError(t, err)
	assert.Equal(t, "product-created-events", r.Topic)
	assert.NotEmpty(t, r.MessageID)

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "p1", string(msgs[0].Key))
	assert.Equal(t, r.MessageID, kafkaInfra.HeaderValue(msgs[0].Headers, event.HeaderMessageID))
	assert.Equal(t, "ProductCreated", kafkaInfra.HeaderValue(msgs[0].Headers, event.HeaderEventType))
}

func TestPublish_KeyDefaultsToCorrelationID(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, Config{MaxInFlight: 1}, nil)
	defer p.Close()

	_, err := p.Publish(context.Background(), "withdraw-money-topic", "", event.WithdrawalRequested{
		MoneyMovement: event.MoneyMovement{SenderID: "alice", RecipientID: "bob", Amount: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", string(w.written()[0].Key))
}

func TestPublishAsync_PreservesPerKeyOrder(t *testing.T) {
	w := &fakeWriter{delay: time.Millisecond}
	p := New(w, Config{MaxInFlight: 5}, nil)
	defer p.Close()

	const perKey = 20
	keys := []string{"a", "b", "c", "d", "e", "f"}

	var pendings []*Pending
	for i := 0; i < perKey; i++ {
		for _, k := range keys {
			pendings = append(pendings, p.PublishAsync(context.Background(), "t", k, product(k, i)))
		}
	}
	for _, pd := range pendings {
		_, err := pd.Wait(context.Background())
		require.NoError(t, err)
	}

	seen := map[string][]int{}
	reg := event.NewRegistry()
	for _, m := range w.written() {
		env, err := reg.Decode(event.Envelope{Headers: kafkaInfra.HeaderMap(m.Headers), Body: m.Value})
		require.NoError(t, err)
		pc := env.Payload.(event.ProductCreated)
		seen[pc.ProductID] = append(seen[pc.ProductID], pc.Quantity)
	}
	for _, k := range keys {
		require.Len(t, seen[k], perKey, "key %s", k)
		for i, q := range seen[k] {
			assert.Equal(t, i, q, "key %s out of order", k)
		}
	}
}

func TestPublishAsync_WriterRetryKeepsPerKeyOrder(t *testing.T) {
	w := &fakeWriter{resend: true}
	p := New(w, Config{MaxInFlight: 5}, nil)
	defer p.Close()

	const perKey = 10
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}

	var pendings []*Pending
	for i := 0; i < perKey; i++ {
		for _, k := range keys {
			pendings = append(pendings, p.PublishAsync(context.Background(), "t", k, product(k, i)))
		}
	}
	for _, pd := range pendings {
		_, err := pd.Wait(context.Background())
		require.NoError(t, err)
	}

	reg := event.NewRegistry()
	copies := map[string]int{}
	raw := map[string][]int{}
	for _, m := range w.written() {
		env, err := reg.Decode(event.Envelope{Headers: kafkaInfra.HeaderMap(m.Headers), Body: m.Value})
		require.NoError(t, err)
		copies[env.MessageID]++
		pc := env.Payload.(event.ProductCreated)
		raw[pc.ProductID] = append(raw[pc.ProductID], pc.Quantity)
	}

	// every resent copy carries the id of the logical send it duplicates
	assert.Len(t, copies, perKey*len(keys))
	for id, n := range copies {
		assert.Equal(t, 2, n, "message %s", id)
	}
	// a retried send of a key always lands before the next send of that key
	for _, k := range keys {
		require.Len(t, raw[k], 2*perKey, "key %s", k)
		for i, q := range raw[k] {
			assert.Equal(t, i/2, q, "key %s out of order", k)
		}
	}
}

func TestPublishAsync_FullQueueFailsFast(t *testing.T) {
	gate := make(chan struct{})
	w := &fakeWriter{gate: gate}
	p := New(w, Config{MaxInFlight: 1, QueueSize: 1}, nil)

	first := p.PublishAsync(context.Background(), "full-topic", "k", product("k", 0))
	require.Eventually(t, func() bool { return w.inFlight.Load() == 1 }, time.Second, time.Millisecond)
	second := p.PublishAsync(context.Background(), "full-topic", "k", product("k", 1))

	before := testutil.ToFloat64(publishErrors.WithLabelValues("full-topic"))
	third := p.PublishAsync(context.Background(), "full-topic", "k", product("k", 2))

	select {
	case <-third.Done():
	default:
		t.Fatal("async publish blocked on a full lane")
	}
	_, err := third.Wait(context.Background())
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, before+1, testutil.ToFloat64(publishErrors.WithLabelValues("full-topic")))

	close(gate)
	_, err = first.Wait(context.Background())
	require.NoError(t, err)
	_, err = second.Wait(context.Background())
	require.NoError(t, err)
	p.Close()
	assert.Len(t, w.written(), 2)
}

func TestPublish_BoundsInFlight(t *testing.T) {
	w := &fakeWriter{delay: 5 * time.Millisecond}
	p := New(w, Config{MaxInFlight: 2}, nil)
	defer p.Close()

	var pendings []*Pending
	for i := 0; i < 30; i++ {
		pendings = append(pendings, p.PublishAsync(context.Background(), "t", fmt.Sprintf("k%d", i), product("x", i)))
	}
	for _, pd := range pendings {
		<-pd.Done()
	}
	assert.LessOrEqual(t, w.maxInFlight.Load(), int32(2))
}

func TestPublish_TransportFailure(t *testing.T) {
	boom := errors.New("connection refused")
	w := &fakeWriter{fail: func(kafka.Message) error { return boom }}
	p := New(w, Config{MaxInFlight: 1}, nil)
	defer p.Close()

	before := testutil.ToFloat64(publishErrors.WithLabelValues("failing-topic"))

	_, err := p.Publish(context.Background(), "failing-topic", "k", product("k", 1))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before+1, testutil.ToFloat64(publishErrors.WithLabelValues("failing-topic")))
}

func TestPublishAsync_SurvivesCallerCancellation(t *testing.T) {
	w := &fakeWriter{delay: 10 * time.Millisecond}
	p := New(w, Config{MaxInFlight: 1}, nil)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	pending := p.PublishAsync(ctx, "t", "k", product("k", 1))
	cancel()

	_, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, w.written(), 1)
}

func TestPublishRaw_KeepsMessageID(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, Config{MaxInFlight: 3}, nil)
	defer p.Close()

	r, err := p.PublishRaw(context.Background(), kafka.Message{
		Topic:   "product-created-events",
		Key:     []byte("p1"),
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: event.HeaderMessageID, Value: []byte("m1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", r.MessageID)
}

func TestPublishRaw_AssignsMissingMessageID(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, Config{MaxInFlight: 1}, nil)
	defer p.Close()

	_, err := p.PublishRaw(context.Background(), kafka.Message{Topic: "t", Value: []byte(`{}`)})
	require.NoError(t, err)
	assert.NotEmpty(t, kafkaInfra.HeaderValue(w.written()[0].Headers, event.HeaderMessageID))
}

func TestClose_RejectsNewSends(t *testing.T) {
	p := New(&fakeWriter{}, Config{MaxInFlight: 1}, nil)
	p.Close()
	p.Close()

	_, err := p.Publish(context.Background(), "t", "k", product("k", 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPending_WaitHonoursContext(t *testing.T) {
	pending := newPending("m1")
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := pending.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
