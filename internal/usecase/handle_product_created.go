package usecase

import (
	"context"
	"log/slog"
	"time"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/domain/product"
	"eventsaga/internal/failure"
)

type Authorizer interface {
	Authorize(ctx context.Context) error
}

type ProductSaver interface {
	Save(ctx context.Context, p *product.Product) error
}

// HandleProductCreated authorizes a new product with the remote service and stores it.
type HandleProductCreated struct {
	remote   Authorizer
	products ProductSaver
	logger   *slog.Logger
}

func NewHandleProductCreated(remote Authorizer, products ProductSaver, logger *slog.Logger) *HandleProductCreated {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandleProductCreated{remote: remote, products: products, logger: logger}
}

func (h *HandleProductCreated) Handle(ctx context.Context, env event.Envelope) error {
	pc, ok := env.Payload.(event.ProductCreated)
	if !ok {
		return failure.Malformedf("handle product created", "unexpected payload %T", env.Payload)
	}

	if err := h.remote.Authorize(ctx); err != nil {
		return err
	}

	if err := h.products.Save(ctx, &product.Product{
		ID:        pc.ProductID,
		Title:     pc.Title,
		Price:     pc.Price,
		Quantity:  pc.Quantity,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	h.logger.Info("product saved", "product_id", pc.ProductID, "title", pc.Title, "message_id", env.MessageID)
	return nil
}
