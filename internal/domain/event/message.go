package event

import (
	"encoding/json"
	"time"
)

// Header names carried on every message.
const (
	HeaderMessageID = "messageId"
	HeaderEventType = "eventType"
)

// Envelope is an event as delivered to a consumer. It is never mutated after decoding.
type Envelope struct {
	MessageID string
	Key       string
	Topic     string
	Partition int
	Offset    int64
	Time      time.Time
	Headers   map[string]string
	Body      json.RawMessage
	Payload   Payload
}

// Type returns the payload type or an empty string if the envelope was not decoded.
func (e Envelope) Type() Type {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EventType()
}
