package workflow

import (
	"context"
	"errors"
	"fmt"

	"kycflow/internal/kyc"
)

// Input is the payload handed to a stage worker: the customer under
// verification plus every event produced by earlier stages, so later stages
// can read earlier scores.
type Input struct {
	CustomerID  string
	DocumentURL string
	Prior       []kyc.Event
}

// Result is a stage worker's outcome. The coordinator turns it into an event
// record; the worker never writes to the store itself.
type Result struct {
	Status            kyc.Status
	DocumentURL       string
	VerificationScore *float64
	FraudScore        *float64
	Metadata          string
}

// StageWorker is one of the four verification stages. Implementations are
// opaque to the coordinator: it only distinguishes success, transient failure
// (retried with backoff), and terminal failure (recorded as FAILED).
type StageWorker interface {
	Invoke(ctx context.Context, in Input) (*Result, error)
}

// WorkerError classifies a stage failure. Transient errors (network, service
// hiccups) are retried up to the configured bound; terminal errors (business
// rejections such as an unreadable document) fail the stage immediately.
type WorkerError struct {
	Transient bool
	Err       error
}

func (e *WorkerError) Error() string {
	kind := "terminal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("worker error (%s): %v", kind, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable worker failure.
func Transient(err error) error { return &WorkerError{Transient: true, Err: err} }

// Terminal wraps err as a non-retryable worker failure.
func Terminal(err error) error { return &WorkerError{Err: err} }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Transient
	}
	return false
}
