// Package failure classifies processing errors into retryable and non-retryable outcomes.
//
// Business logic returns plain errors. The consumer pipeline runs them through a Classifier
// exactly once, and from then on only the Result (cause + tag) travels to the router.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies the family a failure belongs to.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindTransport           Kind = "transport_failure"
	KindConstraintViolation Kind = "constraint_violation"
	KindMalformedPayload    Kind = "malformed_payload"
	KindRemoteRejected      Kind = "remote_rejected"
	KindWorkflow            Kind = "workflow_failure"
)

// Sentinel domain errors mapped to HTTP statuses by the api layer.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Error tags an underlying error with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Transport(op string, err error) error { return New(KindTransport, op, err) }

func ConstraintViolation(op string, err error) error {
	return New(KindConstraintViolation, op, err)
}

func Malformed(op string, err error) error { return New(KindMalformedPayload, op, err) }

// Malformedf builds a malformed-payload failure from a message.
func Malformedf(op, format string, args ...any) error {
	return &Error{Kind: KindMalformedPayload, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost tagged failure in err's chain.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case *WorkflowError:
			return KindWorkflow
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}

// WorkflowError is the single failure surfaced by a multi-step workflow.
type WorkflowError struct {
	Workflow string
	Step     string
	Cause    error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed at step %q: %v", e.Workflow, e.Step, e.Cause)
}

func (e *WorkflowError) Unwrap() error { return e.Cause }
