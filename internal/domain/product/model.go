package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

// PublishStatus tracks the fire-and-forget publish of a product-created event.
type PublishStatus string

const (
	PublishPending PublishStatus = "pending"
	PublishSent    PublishStatus = "sent"
	PublishFailed  PublishStatus = "failed"
)
