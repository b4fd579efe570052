package processed

import "time"

// Entry is one row of the dedup ledger. Entries are only ever inserted.
// At most one entry exists per MessageID.
type Entry struct {
	ID                 int64     `json:"id"`
	MessageID          string    `json:"message_id"`
	CorrelatedEntityID string    `json:"correlated_entity_id"`
	Consumer           string    `json:"consumer"`
	EventType          string    `json:"event_type"`
	ProcessedAt        time.Time `json:"processed_at"`
}
