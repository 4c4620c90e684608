package cache

import (
	"context"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/store"
)

// CachingStore decorates an EventStore so every successful Put also advances
// the latest-status projection. Reads pass through untouched.
type CachingStore struct {
	store.EventStore
	cache *LatestStatus
}

// NewCachingStore wraps inner with projection updates.
func NewCachingStore(inner store.EventStore, cache *LatestStatus) *CachingStore {
	return &CachingStore{EventStore: inner, cache: cache}
}

// Put upserts through the inner store, then updates the projection. Cache
// failures are logged inside Update and never fail the write.
func (s *CachingStore) Put(ctx context.Context, event kyc.Event) error {
	if err := s.EventStore.Put(ctx, event); err != nil {
		return err
	}
	s.cache.Update(ctx, event)
	return nil
}
