// Package metrics holds the Prometheus instruments for the KYC workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the workflow engine.
type Metrics struct {
	WorkflowsStarted   prometheus.Counter
	WorkflowsFinished  *prometheus.CounterVec
	StageInvocations   *prometheus.CounterVec
	StageSkips         *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	EventsWritten      prometheus.Counter
	StoreRetries       prometheus.Counter
	LatestCacheHits    prometheus.Counter
	LatestCacheMisses  prometheus.Counter
	OutboxPublished    prometheus.Counter
	OutboxPublishFails prometheus.Counter
}

// New creates and registers all metrics on reg. Pass a fresh registry in
// tests to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		WorkflowsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_workflows_started_total",
			Help: "Total number of verification workflows started",
		}),
		WorkflowsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_workflows_finished_total",
			Help: "Total number of workflows reaching a terminal state",
		}, []string{"state"}),
		StageInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_stage_invocations_total",
			Help: "Total stage worker invocations by stage and outcome",
		}, []string{"stage", "outcome"}),
		StageSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_stage_skips_total",
			Help: "Stages skipped because their event record already existed",
		}, []string{"stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_stage_duration_seconds",
			Help:    "Stage worker invocation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		EventsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_events_written_total",
			Help: "Event records upserted into the event store",
		}),
		StoreRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_store_retries_total",
			Help: "Retries against the event store after transient failures",
		}),
		LatestCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_latest_cache_hits_total",
			Help: "List-view reads served from the latest-status cache",
		}),
		LatestCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_latest_cache_misses_total",
			Help: "List-view reads that fell back to the event store",
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_outbox_published_total",
			Help: "Outbox rows successfully published to Kafka",
		}),
		OutboxPublishFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed",
		}),
	}
}
