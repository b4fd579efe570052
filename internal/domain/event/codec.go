package event

import (
	"encoding/json"
	"fmt"

	"eventsaga/internal/failure"
)

// Registry resolves an event type header to a fresh payload value.
type Registry struct {
	factories map[Type]func() Payload
}

// NewRegistry returns a registry that knows every event type of this system.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[Type]func() Payload)}
	r.Register(TypeProductCreated, func() Payload { return &ProductCreated{} })
	r.Register(TypeTransferRequested, func() Payload { return &TransferRequested{} })
	r.Register(TypeWithdrawalRequested, func() Payload { return &WithdrawalRequested{} })
	r.Register(TypeDepositRequested, func() Payload { return &DepositRequested{} })
	return r
}

func (r *Registry) Register(t Type, factory func() Payload) {
	r.factories[t] = factory
}

// Decode builds an Envelope from raw message parts. Every problem found here is a
// malformed-payload failure: business logic never runs for such messages.
func (r *Registry) Decode(env Envelope) (Envelope, error) {
	const op = "decode event"

	if env.MessageID == "" {
		env.MessageID = env.Headers[HeaderMessageID]
	}
	if env.MessageID == "" {
		return env, failure.Malformedf(op, "missing %s header", HeaderMessageID)
	}

	t := Type(env.Headers[HeaderEventType])
	factory, ok := r.factories[t]
	if !ok {
		return env, failure.Malformedf(op, "unknown event type %q", t)
	}

	p := factory()
	if err := json.Unmarshal(env.Body, p); err != nil {
		return env, failure.Malformed(op, fmt.Errorf("unmarshal %s: %w", t, err))
	}

	env.Payload = deref(p)
	return env, nil
}

// Encode serializes a payload and returns the body and the headers that must accompany it.
func Encode(messageID string, p Payload) ([]byte, map[string]string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal %s: %w", p.EventType(), err)
	}
	return body, map[string]string{
		HeaderMessageID: messageID,
		HeaderEventType: string(p.EventType()),
	}, nil
}

// deref turns the pointer produced by a factory into the value type handlers switch on.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *ProductCreated:
		return *v
	case *TransferRequested:
		return *v
	case *WithdrawalRequested:
		return *v
	case *DepositRequested:
		return *v
	default:
		return p
	}
}
