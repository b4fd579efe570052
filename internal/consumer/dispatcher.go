package consumer

import (
	"context"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/failure"
)

// Handler runs the business logic for one decoded event. Handlers are invoked inside the
// transaction that records the ledger entry; ctx carries that transaction.
type Handler interface {
	Handle(ctx context.Context, env event.Envelope) error
}

type HandlerFunc func(ctx context.Context, env event.Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env event.Envelope) error { return f(ctx, env) }

// Dispatcher maps payload types to handlers. It is filled once at startup.
type Dispatcher struct {
	handlers map[event.Type]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[event.Type]Handler)}
}

func (d *Dispatcher) Register(t event.Type, h Handler) *Dispatcher {
	d.handlers[t] = h
	return d
}

// Handler returns the handler for t. An event nobody handles is malformed for this consumer.
func (d *Dispatcher) Handler(t event.Type) (Handler, error) {
	h, ok := d.handlers[t]
	if !ok {
		return nil, failure.Malformedf("dispatch", "no handler for event type %q", t)
	}
	return h, nil
}
