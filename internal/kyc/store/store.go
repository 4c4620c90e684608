// Package store defines the event store contract and its implementations.
// Writes are idempotent upserts keyed on (customerId, eventType); there is no
// insert path, so Conflict cannot occur. Transient I/O failures surface as
// ErrUnavailable so callers can retry with backoff.
package store

import (
	"context"

	"kycflow/internal/kyc"
	dErrors "kycflow/pkg/domain-errors"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks EventStore

var (
	// ErrUnavailable marks transient store failures. Callers retry a bounded
	// number of times before escalating to a stage failure.
	ErrUnavailable = dErrors.New(dErrors.CodeUnavailable, "event store unavailable")

	// ErrNotFound keeps 404 semantics consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "event not found")
)

// EventStore is the durable keyed append/query surface over event records.
//
// ScanAll is a non-index read kept for the dashboard's "all records" view and
// acceptable only at low cardinality; the successor at scale is a read-model
// projection (the Redis latest-status cache in internal/kyc/cache is the
// first step toward it).
type EventStore interface {
	// Put upserts the record keyed by (CustomerID, EventType).
	Put(ctx context.Context, event kyc.Event) error
	// QueryByCustomer returns all events for one customer, in no particular
	// order; callers re-sort by lastUpdated.
	QueryByCustomer(ctx context.Context, customerID string) ([]kyc.Event, error)
	// QueryByStatus returns up to limit events whose kycStatus equals status.
	QueryByStatus(ctx context.Context, status kyc.Status, limit int) ([]kyc.Event, error)
	// ScanAll returns up to limit events across all customers.
	ScanAll(ctx context.Context, limit int) ([]kyc.Event, error)
}
