// Package outbox drains event rows staged by the Postgres store to Kafka.
// The store writes the outbox row in the same transaction as the event
// upsert, so downstream consumers see every stage completion at least once;
// rows are marked published only after the broker acks.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"kycflow/internal/kyc/metrics"
)

// Publisher polls the outbox table and produces pending rows to a topic.
type Publisher struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New constructs a publisher. interval is the poll period; batch bounds rows
// per poll.
func New(db *sql.DB, client *kgo.Client, topic string, interval time.Duration, batch int, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		db:       db,
		client:   client,
		topic:    topic,
		interval: interval,
		batch:    batch,
		logger:   logger,
		metrics:  m,
	}
}

// EnsureTopic creates the topic when missing.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicas, nil, p.topic)
	if err != nil {
		if errors.Is(err, kerr.TopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.Warn("outbox drain failed", "error", err)
			}
		}
	}
}

type row struct {
	id          string
	aggregateID string
	eventType   string
	payload     []byte
}

// drain publishes one batch of unpublished rows. SKIP LOCKED lets multiple
// replicas drain concurrently without double-publishing within a poll; the
// consumer contract is still at-least-once.
func (p *Publisher) drain(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox drain: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, p.batch)
	if err != nil {
		return fmt.Errorf("select outbox rows: %w", err)
	}

	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.aggregateID, &r.eventType, &r.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	published := make([]string, 0, len(pending))
	for _, r := range pending {
		record := &kgo.Record{
			Topic: p.topic,
			Key:   []byte(r.aggregateID),
			Value: r.payload,
			Headers: []kgo.RecordHeader{
				{Key: "eventType", Value: []byte(r.eventType)},
			},
		}
		if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			p.metrics.OutboxPublishFails.Inc()
			p.logger.Warn("outbox publish failed, row stays pending",
				"outbox_id", r.id, "error", err)
			continue
		}
		p.metrics.OutboxPublished.Inc()
		published = append(published, r.id)
	}
	if len(published) == 0 {
		return nil
	}

	now := time.Now()
	for _, id := range published {
		if _, err := tx.ExecContext(ctx, `UPDATE outbox SET published_at = $1 WHERE id = $2`, now, id); err != nil {
			return fmt.Errorf("mark outbox row published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox drain: %w", err)
	}

	p.logger.Info("outbox batch published", "count", len(published))
	return nil
}
