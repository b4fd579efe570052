package postgres

import (
	"context"
	"fmt"

	"eventsaga/internal/domain/product"
)

type ProductRepository struct {
	db DB
}

func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Save stores p. Saving the same product id twice is a no-op.
func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	const sql = `
		INSERT INTO products (id, title, price, quantity, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := conn(ctx, r.db).Exec(ctx, sql, p.ID, p.Title, p.Price.String(), p.Quantity, p.CreatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}
