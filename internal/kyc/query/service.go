// Package query is the read-only facade combining event store queries with
// status derivation. Viewers poll it at fixed intervals; reads are
// best-effort snapshots and tolerate staleness up to the polling interval.
package query

import (
	"context"
	"log/slog"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/store"
	dErrors "kycflow/pkg/domain-errors"
)

// LatestCache is the optional read-model projection for the list view.
type LatestCache interface {
	All(ctx context.Context) ([]kyc.Event, bool)
	Fill(ctx context.Context, events []kyc.Event)
}

// Timeline is one customer's full history plus the derived status.
type Timeline struct {
	Events   []kyc.Event  `json:"events"`
	Progress kyc.Progress `json:"progress"`
}

// Service answers viewer reads. It never mutates the event log.
type Service struct {
	store    store.EventStore
	cache    LatestCache
	pageSize int
	logger   *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithCache attaches the latest-status projection.
func WithCache(cache LatestCache) Option {
	return func(s *Service) { s.cache = cache }
}

// New constructs the query service. pageSize bounds list reads.
func New(eventStore store.EventStore, pageSize int, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: eventStore, pageSize: pageSize, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CustomerTimeline returns all events for customerID ascending by
// lastUpdated, plus the derived progress. An unknown customer yields an empty
// timeline with PENDING status, not an error.
func (s *Service) CustomerTimeline(ctx context.Context, customerID string) (*Timeline, error) {
	if customerID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "customerId is required")
	}

	events, err := s.store.QueryByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	kyc.SortByTime(events)
	if events == nil {
		events = []kyc.Event{}
	}

	return &Timeline{Events: events, Progress: kyc.Derive(events)}, nil
}

// ListRecords returns a bounded page of latest-per-customer records, newest
// first, optionally filtered by status. The page is a best-effort snapshot;
// no cursor is stable across concurrent writes.
func (s *Service) ListRecords(ctx context.Context, status kyc.Status) ([]kyc.Event, error) {
	if status != "" && !status.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown status filter")
	}

	latest, err := s.latestPerCustomer(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]kyc.Event, 0, len(latest))
	for _, e := range latest {
		if status != "" && e.KYCStatus != status {
			continue
		}
		out = append(out, e)
	}
	kyc.SortByTime(out)
	reverse(out)
	if s.pageSize > 0 && len(out) > s.pageSize {
		out = out[:s.pageSize]
	}
	return out, nil
}

func (s *Service) latestPerCustomer(ctx context.Context) ([]kyc.Event, error) {
	if s.cache != nil {
		if events, ok := s.cache.All(ctx); ok {
			return events, nil
		}
	}

	events, err := s.store.ScanAll(ctx, s.scanLimit())
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[string]kyc.Event)
	for _, e := range events {
		cur, ok := byCustomer[e.CustomerID]
		if !ok || kyc.Supersedes(e, cur) {
			byCustomer[e.CustomerID] = e
		}
	}

	out := make([]kyc.Event, 0, len(byCustomer))
	for _, e := range byCustomer {
		out = append(out, e)
	}
	if s.cache != nil {
		s.cache.Fill(ctx, out)
	}
	return out, nil
}

// scanLimit oversamples the scan so pageSize customers survive the
// latest-per-customer reduction.
func (s *Service) scanLimit() int {
	if s.pageSize <= 0 {
		return 0
	}
	return s.pageSize * kyc.NumStages
}

func reverse(events []kyc.Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
