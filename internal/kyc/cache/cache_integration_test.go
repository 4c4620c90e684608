//go:build integration

package cache_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/cache"
	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/store"
	"kycflow/pkg/testutil/containers"
)

type LatestStatusSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.LatestStatus
	ctx   context.Context
	t0    time.Time
}

func TestLatestStatusSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LatestStatusSuite))
}

func (s *LatestStatusSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *LatestStatusSuite) SetupTest() {
	s.Require().NoError(s.redis.Client.FlushAll(s.ctx).Err())
	s.cache = cache.New(s.redis.Client, time.Minute, slog.New(slog.DiscardHandler),
		metrics.New(prometheus.NewRegistry()))
}

func (s *LatestStatusSuite) event(customerID string, eventType kyc.EventType, status kyc.Status, offset time.Duration) kyc.Event {
	return kyc.Event{
		CustomerID:  customerID,
		EventType:   eventType,
		KYCStatus:   status,
		LastUpdated: s.t0.Add(offset),
	}
}

func (s *LatestStatusSuite) TestEmptyCacheMisses() {
	events, ok := s.cache.All(s.ctx)
	s.False(ok)
	s.Nil(events)
}

func (s *LatestStatusSuite) TestFillThenAll() {
	s.cache.Fill(s.ctx, []kyc.Event{
		s.event("cust-1", kyc.EventDocumentValidated, kyc.StatusValidated, 0),
		s.event("cust-1", kyc.EventIdentityVerified, kyc.StatusVerified, time.Minute),
		s.event("cust-2", kyc.EventDocumentValidated, kyc.StatusValidated, 0),
	})

	events, ok := s.cache.All(s.ctx)
	s.Require().True(ok)
	s.Require().Len(events, 2, "fill must reduce to one record per customer")

	byCustomer := make(map[string]kyc.Event, len(events))
	for _, e := range events {
		byCustomer[e.CustomerID] = e
	}
	s.Equal(kyc.StatusVerified, byCustomer["cust-1"].KYCStatus)
	s.Equal(kyc.StatusValidated, byCustomer["cust-2"].KYCStatus)
}

func (s *LatestStatusSuite) TestUpdateAdvancesOnlyForward() {
	s.cache.Fill(s.ctx, []kyc.Event{
		s.event("cust-1", kyc.EventIdentityVerified, kyc.StatusVerified, time.Minute),
	})

	s.Run("newer record replaces the cached one", func() {
		s.cache.Update(s.ctx, s.event("cust-1", kyc.EventFraudChecked, kyc.StatusVerified, 2*time.Minute))

		events, ok := s.cache.All(s.ctx)
		s.Require().True(ok)
		s.Require().Len(events, 1)
		s.Equal(kyc.EventFraudChecked, events[0].EventType)
	})

	s.Run("older record is ignored", func() {
		s.cache.Update(s.ctx, s.event("cust-1", kyc.EventDocumentValidated, kyc.StatusValidated, 0))

		events, ok := s.cache.All(s.ctx)
		s.Require().True(ok)
		s.Require().Len(events, 1)
		s.Equal(kyc.EventFraudChecked, events[0].EventType)
	})

	s.Run("unknown customer is inserted", func() {
		s.cache.Update(s.ctx, s.event("cust-9", kyc.EventDocumentValidated, kyc.StatusValidated, 0))

		events, ok := s.cache.All(s.ctx)
		s.Require().True(ok)
		s.Len(events, 2)
	})
}

func (s *LatestStatusSuite) TestCachingStorePutUpdatesProjection() {
	caching := cache.NewCachingStore(store.NewInMemory(), s.cache)

	event := s.event("cust-1", kyc.EventDocumentValidated, kyc.StatusValidated, 0)
	s.Require().NoError(caching.Put(s.ctx, event))

	stored, err := caching.QueryByCustomer(s.ctx, "cust-1")
	s.Require().NoError(err)
	s.Len(stored, 1)

	cached, ok := s.cache.All(s.ctx)
	s.Require().True(ok)
	s.Require().Len(cached, 1)
	s.Equal(kyc.EventDocumentValidated, cached[0].EventType)
}
