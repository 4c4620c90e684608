package audit

import (
	"context"
	"sync"
)

// defaultCap bounds the in-memory trail; oldest entries are evicted first.
const defaultCap = 10000

// InMemoryStore keeps a bounded, newest-last slice of audit entries.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	cap     int
}

// NewInMemoryStore creates an empty store with the default capacity.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cap: defaultCap}
}

// Append records an entry, evicting the oldest when at capacity.
func (s *InMemoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.cap {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry)
	return nil
}

// List returns up to limit entries, newest first.
func (s *InMemoryStore) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// ListByCustomer returns all entries for one customer, newest first.
func (s *InMemoryStore) ListByCustomer(ctx context.Context, customerID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].CustomerID == customerID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}
