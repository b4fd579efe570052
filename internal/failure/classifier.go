package failure

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
)

// Classification tells the router whether a failed attempt may be repeated.
type Classification int

const (
	NotRetryable Classification = iota
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "not_retryable"
}

// Result is the typed outcome of one processing attempt.
// A zero Result means success.
type Result struct {
	Err   error
	Kind  Kind
	Class Classification
}

func (r Result) OK() bool { return r.Err == nil }

// Classifier maps failure kinds to classifications through a lookup table.
type Classifier struct {
	mu    sync.RWMutex
	table map[Kind]Classification
}

// NewClassifier returns a classifier with the default policy: transport failures retry,
// everything else goes straight to the dead-letter topic.
func NewClassifier() *Classifier {
	return &Classifier{
		table: map[Kind]Classification{
			KindTransport:           Retryable,
			KindConstraintViolation: NotRetryable,
			KindMalformedPayload:    NotRetryable,
			KindRemoteRejected:      NotRetryable,
			KindWorkflow:            NotRetryable,
			KindUnknown:             NotRetryable,
		},
	}
}

// Register overrides or adds the classification for kind.
func (c *Classifier) Register(kind Kind, class Classification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table[kind] = class
}

// Classify resolves err to a Result. Untagged errors are inspected once by Detect.
func (c *Classifier) Classify(err error) Result {
	if err == nil {
		return Result{}
	}

	kind := KindOf(err)
	if kind == KindUnknown {
		kind = Detect(err)
	}

	c.mu.RLock()
	class, ok := c.table[kind]
	c.mu.RUnlock()
	if !ok {
		class = NotRetryable
	}

	return Result{Err: err, Kind: kind, Class: class}
}

// Detect recognises untagged connectivity errors (timeouts, refused or reset connections).
func Detect(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransport
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransport
	}

	return KindUnknown
}
