package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/domain/product"
	"eventsaga/internal/publisher"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload event.Payload) (publisher.Receipt, error)
	PublishAsync(ctx context.Context, topic, key string, payload event.Payload) *publisher.Pending
}

// StatusTracker records the outcome of asynchronous product publishes.
type StatusTracker interface {
	Track(ctx context.Context, productID string, status product.PublishStatus) error
	Status(ctx context.Context, productID string) (product.PublishStatus, error)
}

type CreateProduct struct {
	publisher EventPublisher
	tracker   StatusTracker
	topic     string
	newID     func() string
	logger    *slog.Logger
}

// NewCreateProduct builds the use case. tracker may be nil, in which case async publish
// failures are only logged.
func NewCreateProduct(pub EventPublisher, tracker StatusTracker, topic string, logger *slog.Logger) *CreateProduct {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateProduct{
		publisher: pub,
		tracker:   tracker,
		topic:     topic,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// Async returns the new product id as soon as the event is queued. The caller never learns
// about the publish outcome.
func (uc *CreateProduct) Async(ctx context.Context, cmd CreateProductCommand) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}

	id := uc.newID()
	uc.track(ctx, id, product.PublishPending)

	pending := uc.publisher.PublishAsync(ctx, uc.topic, id, cmd.event(id))
	productsCreated.WithLabelValues("async").Inc()

	go uc.observe(id, pending)

	return id, nil
}

// Sync returns once the event is durably written.
func (uc *CreateProduct) Sync(ctx context.Context, cmd CreateProductCommand) (string, publisher.Receipt, error) {
	if err := cmd.Validate(); err != nil {
		return "", publisher.Receipt{}, err
	}

	id := uc.newID()
	receipt, err := uc.publisher.Publish(ctx, uc.topic, id, cmd.event(id))
	if err != nil {
		return "", publisher.Receipt{}, fmt.Errorf("publish product created: %w", err)
	}
	productsCreated.WithLabelValues("sync").Inc()

	uc.logger.Info("product created event published",
		"product_id", id,
		"topic", receipt.Topic,
		"partition", receipt.Partition,
		"offset", receipt.Offset,
		"timestamp", receipt.Timestamp,
	)

	return id, receipt, nil
}

func (uc *CreateProduct) observe(id string, pending *publisher.Pending) {
	receipt, err := pending.Wait(context.Background())
	if err != nil {
		uc.logger.Error("async product publish failed", "product_id", id, "message_id", pending.MessageID, "error", err)
		uc.track(context.Background(), id, product.PublishFailed)
		return
	}

	uc.logger.Info("product created event published",
		"product_id", id,
		"topic", receipt.Topic,
		"partition", receipt.Partition,
		"offset", receipt.Offset,
	)
	uc.track(context.Background(), id, product.PublishSent)
}

func (uc *CreateProduct) track(ctx context.Context, id string, status product.PublishStatus) {
	if uc.tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.tracker.Track(ctx, id, status); err != nil {
		uc.logger.Warn("failed to track publish status", "product_id", id, "status", status, "error", err)
	}
}

func (c CreateProductCommand) event(id string) event.ProductCreated {
	return event.ProductCreated{
		ProductID: id,
		Title:     c.Title,
		Price:     c.Price,
		Quantity:  c.Quantity,
	}
}
