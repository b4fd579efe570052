package publisher

import "context"

// Pending is the completion handle of an asynchronous send.
type Pending struct {
	MessageID string

	done    chan struct{}
	receipt Receipt
	err     error
}

func newPending(messageID string) *Pending {
	return &Pending{MessageID: messageID, done: make(chan struct{})}
}

func (p *Pending) complete(r Receipt, err error) {
	p.receipt, p.err = r, err
	close(p.done)
}

// Done is closed once the send is acknowledged or has failed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the send completes or ctx ends. A cancelled wait does not cancel the send.
func (p *Pending) Wait(ctx context.Context) (Receipt, error) {
	select {
	case <-p.done:
		return p.receipt, p.err
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}
}
