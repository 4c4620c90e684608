package store

import (
	"context"
	"sync"

	"kycflow/internal/kyc"
)

// InMemoryStore implements EventStore with a mutex-guarded map. It backs unit
// tests and the no-Postgres dev mode; production uses PostgresStore.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string]map[kyc.EventType]kyc.Event
}

// NewInMemory creates an empty in-memory event store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[string]map[kyc.EventType]kyc.Event)}
}

// Put upserts the record keyed by (CustomerID, EventType).
func (s *InMemoryStore) Put(ctx context.Context, event kyc.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := s.events[event.CustomerID]
	if byType == nil {
		byType = make(map[kyc.EventType]kyc.Event)
		s.events[event.CustomerID] = byType
	}
	byType[event.EventType] = event
	return nil
}

// QueryByCustomer returns all events for one customer in map order.
func (s *InMemoryStore) QueryByCustomer(ctx context.Context, customerID string) ([]kyc.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := s.events[customerID]
	out := make([]kyc.Event, 0, len(byType))
	for _, e := range byType {
		out = append(out, e)
	}
	return out, nil
}

// QueryByStatus returns up to limit events matching status.
func (s *InMemoryStore) QueryByStatus(ctx context.Context, status kyc.Status, limit int) ([]kyc.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []kyc.Event
	for _, byType := range s.events {
		for _, e := range byType {
			if e.KYCStatus != status {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// ScanAll returns up to limit events across all customers.
func (s *InMemoryStore) ScanAll(ctx context.Context, limit int) ([]kyc.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []kyc.Event
	for _, byType := range s.events {
		for _, e := range byType {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}
