// Package cache keeps a Redis projection of each customer's latest event so
// the polling list view does not fall back to a full store scan on every
// request. It is a best-effort read model: every miss or Redis error degrades
// to the store, never to a user-visible failure.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/metrics"
)

const hashKey = "kyc:latest"

// LatestStatus is a Redis hash mapping customerId to the JSON of that
// customer's most recent event record.
type LatestStatus struct {
	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates the cache. ttl bounds staleness after writes stop; zero
// disables expiry.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *LatestStatus {
	return &LatestStatus{rdb: rdb, ttl: ttl, logger: logger, metrics: m}
}

// All returns every cached latest record. ok is false on a miss or Redis
// error; callers fall back to the event store.
func (c *LatestStatus) All(ctx context.Context) ([]kyc.Event, bool) {
	fields, err := c.rdb.HGetAll(ctx, hashKey).Result()
	if err != nil || len(fields) == 0 {
		if err != nil {
			c.logger.Warn("latest cache read failed", "error", err)
		}
		c.metrics.LatestCacheMisses.Inc()
		return nil, false
	}

	out := make([]kyc.Event, 0, len(fields))
	for _, raw := range fields {
		var e kyc.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			c.logger.Warn("latest cache entry corrupt, falling back", "error", err)
			c.metrics.LatestCacheMisses.Inc()
			return nil, false
		}
		out = append(out, e)
	}
	c.metrics.LatestCacheHits.Inc()
	return out, true
}

// Fill replaces the projection with the latest record per customer derived
// from events.
func (c *LatestStatus) Fill(ctx context.Context, events []kyc.Event) {
	latest := make(map[string]kyc.Event)
	for _, e := range events {
		cur, ok := latest[e.CustomerID]
		if !ok || kyc.Supersedes(e, cur) {
			latest[e.CustomerID] = e
		}
	}
	if len(latest) == 0 {
		return
	}

	fields := make(map[string]any, len(latest))
	for customerID, e := range latest {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		fields[customerID] = raw
	}

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, hashKey, fields)
	if c.ttl > 0 {
		pipe.Expire(ctx, hashKey, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("latest cache fill failed", "error", err)
	}
}

// Update advances one customer's cached record if event supersedes it.
func (c *LatestStatus) Update(ctx context.Context, event kyc.Event) {
	raw, err := c.rdb.HGet(ctx, hashKey, event.CustomerID).Result()
	if err == nil {
		var cur kyc.Event
		if json.Unmarshal([]byte(raw), &cur) == nil && !kyc.Supersedes(event, cur) {
			return
		}
	} else if err != redis.Nil {
		c.logger.Warn("latest cache update read failed", "error", err)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := c.rdb.HSet(ctx, hashKey, event.CustomerID, payload).Err(); err != nil {
		c.logger.Warn("latest cache update failed", "error", err)
	}
}
