package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"eventsaga/internal/domain/processed"
	"eventsaga/internal/failure"
)

const uniqueViolation = "23505"

// LedgerRepository stores processed message ids. The UNIQUE(message_id) constraint is what
// serializes concurrent deliveries of the same message.
type LedgerRepository struct {
	db DB
}

func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Exists(ctx context.Context, messageID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM processed_events WHERE message_id = $1)`

	var exists bool
	if err := conn(ctx, r.db).QueryRow(ctx, query, messageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup processed event: %w", err)
	}
	return exists, nil
}

// Insert appends e to the ledger and fills its ID and ProcessedAt. A duplicate message id is
// reported as a constraint-violation failure.
func (r *LedgerRepository) Insert(ctx context.Context, e *processed.Entry) error {
	const query = `
		INSERT INTO processed_events (message_id, correlated_entity_id, consumer, event_type, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, processed_at
	`

	err := conn(ctx, r.db).QueryRow(ctx, query, e.MessageID, e.CorrelatedEntityID, e.Consumer, e.EventType).
		Scan(&e.ID, &e.ProcessedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return failure.ConstraintViolation("insert processed event", fmt.Errorf("message %s already processed: %w", e.MessageID, err))
		}
		return fmt.Errorf("insert processed event: %w", err)
	}

	return nil
}

func (r *LedgerRepository) ListRecent(ctx context.Context, limit int) ([]*processed.Entry, error) {
	const query = `
		SELECT id, message_id, correlated_entity_id, consumer, event_type, processed_at
		FROM processed_events
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query processed events: %w", err)
	}
	defer rows.Close()

	var entries []*processed.Entry
	for rows.Next() {
		e := &processed.Entry{}
		if err := rows.Scan(&e.ID, &e.MessageID, &e.CorrelatedEntityID, &e.Consumer, &e.EventType, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan processed event: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
