// Package publisher sends events with per-key ordering and a bounded number of in-flight sends.
//
// Each logical send is assigned one messageId when it is published. The underlying writer may
// retry it internally, but every attempt carries the same id, so consumers collapse any broker
// visible duplicate through their dedup ledger. Sends are spread over MaxInFlight lanes chosen
// by hashing the key: a lane writes one message at a time, which keeps the order of a key intact
// even when the writer retries.
package publisher

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"eventsaga/internal/domain/event"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
)

var (
	ErrClosed = errors.New("publisher is closed")
	// ErrQueueFull fails an async send whose lane has no room left.
	ErrQueueFull = errors.New("publisher queue is full")
)

type Receipt = kafkaInfra.Receipt

// Writer delivers one message and blocks until the broker acknowledges it.
type Writer interface {
	Write(ctx context.Context, msg kafka.Message) (kafkaInfra.Receipt, error)
}

type Config struct {
	// MaxInFlight bounds unacknowledged sends. Values above 5 are rejected by config validation.
	MaxInFlight int
	// DeliveryTimeout bounds a single logical send including the writer's retries.
	DeliveryTimeout time.Duration
	// QueueSize is the buffer of each lane.
	QueueSize int
}

type Publisher struct {
	writer  Writer
	timeout time.Duration
	logger  *slog.Logger
	newID   func() string

	mu     sync.RWMutex
	closed bool
	lanes  []chan *request
	wg     sync.WaitGroup
}

type request struct {
	ctx     context.Context
	msg     kafka.Message
	pending *Pending
}

func New(w Writer, cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	n := cfg.MaxInFlight
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 256
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	p := &Publisher{
		writer:  w,
		timeout: timeout,
		logger:  logger,
		newID:   uuid.NewString,
		lanes:   make([]chan *request, n),
	}
	for i := range p.lanes {
		p.lanes[i] = make(chan *request, queue)
		p.wg.Add(1)
		go p.runLane(p.lanes[i])
	}
	return p
}

// Publish sends payload to topic and waits for the acknowledgment.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload event.Payload) (Receipt, error) {
	msg, err := p.build(topic, key, payload)
	if err != nil {
		return Receipt{}, err
	}
	return p.enqueue(ctx, msg, true).Wait(ctx)
}

// PublishAsync queues payload and returns immediately. The send outlives ctx cancellation and is
// bounded by the delivery timeout instead. When the key's lane is full the returned Pending is
// already failed with ErrQueueFull.
func (p *Publisher) PublishAsync(ctx context.Context, topic, key string, payload event.Payload) *Pending {
	msg, err := p.build(topic, key, payload)
	if err != nil {
		pending := newPending("")
		pending.complete(Receipt{}, err)
		return pending
	}
	return p.enqueue(context.WithoutCancel(ctx), msg, false)
}

// PublishRaw sends an already built message. A missing messageId header is filled in.
func (p *Publisher) PublishRaw(ctx context.Context, msg kafka.Message) (Receipt, error) {
	if kafkaInfra.HeaderValue(msg.Headers, event.HeaderMessageID) == "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: event.HeaderMessageID, Value: []byte(p.newID())})
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}
	return p.enqueue(ctx, msg, true).Wait(ctx)
}

func (p *Publisher) build(topic, key string, payload event.Payload) (kafka.Message, error) {
	id := p.newID()
	body, headers, err := event.Encode(id, payload)
	if err != nil {
		return kafka.Message{}, err
	}
	if key == "" {
		key = payload.CorrelationID()
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   body,
		Headers: kafkaInfra.Headers(headers),
		Time:    time.Now().UTC(),
	}, nil
}

// enqueue hands msg to its lane. With block unset a full lane fails the send instead of waiting.
func (p *Publisher) enqueue(ctx context.Context, msg kafka.Message, block bool) *Pending {
	pending := newPending(kafkaInfra.HeaderValue(msg.Headers, event.HeaderMessageID))

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		pending.complete(Receipt{}, ErrClosed)
		return pending
	}

	lane := p.lanes[p.laneFor(msg.Key)]
	req := &request{ctx: ctx, msg: msg, pending: pending}

	if !block {
		select {
		case lane <- req:
		default:
			publishErrors.WithLabelValues(msg.Topic).Inc()
			p.logger.Warn("publish queue full", "topic", msg.Topic, "message_id", pending.MessageID)
			pending.complete(Receipt{}, ErrQueueFull)
		}
		return pending
	}

	select {
	case lane <- req:
	case <-ctx.Done():
		pending.complete(Receipt{}, ctx.Err())
	}
	return pending
}

func (p *Publisher) laneFor(key []byte) int {
	if len(p.lanes) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int(h.Sum32() % uint32(len(p.lanes)))
}

func (p *Publisher) runLane(lane <-chan *request) {
	defer p.wg.Done()

	for req := range lane {
		p.send(req)
	}
}

func (p *Publisher) send(req *request) {
	if err := req.ctx.Err(); err != nil {
		req.pending.complete(Receipt{}, err)
		return
	}

	ctx, cancel := context.WithTimeout(req.ctx, p.timeout)
	defer cancel()

	started := time.Now()
	receipt, err := p.writer.Write(ctx, req.msg)
	publishDuration.WithLabelValues(req.msg.Topic).Observe(time.Since(started).Seconds())

	if err != nil {
		publishErrors.WithLabelValues(req.msg.Topic).Inc()
		p.logger.Error("publish failed",
			"topic", req.msg.Topic,
			"message_id", req.pending.MessageID,
			"error", err,
		)
		req.pending.complete(Receipt{}, err)
		return
	}

	messagesPublished.WithLabelValues(req.msg.Topic).Inc()
	req.pending.complete(receipt, nil)
}

// Close stops accepting sends, flushes what is queued and waits for the lanes to finish.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, lane := range p.lanes {
		close(lane)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
