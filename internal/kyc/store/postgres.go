package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kycflow/internal/kyc"
)

// PostgresStore implements EventStore on PostgreSQL. Put runs the upsert and
// an outbox insert in one transaction; the outbox publisher drains the rows
// to Kafka so stage completions reach downstream consumers at least once.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed event store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema holds the DDL the store needs. Applied by EnsureSchema at startup;
// no migration tooling while the schema is this small.
const Schema = `
CREATE TABLE IF NOT EXISTS kyc_events (
	customer_id        TEXT NOT NULL,
	event_type         TEXT NOT NULL,
	kyc_status         TEXT NOT NULL,
	document_url       TEXT NOT NULL DEFAULT '',
	verification_score DOUBLE PRECISION,
	fraud_score        DOUBLE PRECISION,
	metadata           TEXT NOT NULL DEFAULT '',
	last_updated       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (customer_id, event_type)
);

CREATE INDEX IF NOT EXISTS kyc_events_status_idx ON kyc_events (kyc_status);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_unpublished_idx ON outbox (created_at) WHERE published_at IS NULL;
`

// EnsureSchema applies the store DDL.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure kyc schema: %w", err)
	}
	return nil
}

// Put upserts the record and stages an outbox row in the same transaction.
func (s *PostgresStore) Put(ctx context.Context, event kyc.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transient("begin put event", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kyc_events (customer_id, event_type, kyc_status, document_url, verification_score, fraud_score, metadata, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (customer_id, event_type) DO UPDATE SET
			kyc_status = EXCLUDED.kyc_status,
			document_url = EXCLUDED.document_url,
			verification_score = EXCLUDED.verification_score,
			fraud_score = EXCLUDED.fraud_score,
			metadata = EXCLUDED.metadata,
			last_updated = EXCLUDED.last_updated
	`,
		event.CustomerID,
		string(event.EventType),
		string(event.KYCStatus),
		event.DocumentURL,
		nullFloat(event.VerificationScore),
		nullFloat(event.FraudScore),
		event.Metadata,
		event.LastUpdated,
	)
	if err != nil {
		return transient("put event", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(),
		"kyc",
		event.CustomerID,
		string(event.EventType),
		payload,
		time.Now(),
	)
	if err != nil {
		return transient("stage outbox row", err)
	}

	if err := tx.Commit(); err != nil {
		return transient("commit put event", err)
	}
	return nil
}

// QueryByCustomer returns all events for one customer.
func (s *PostgresStore) QueryByCustomer(ctx context.Context, customerID string) ([]kyc.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE customer_id = $1`, customerID)
	if err != nil {
		return nil, transient("query events by customer", err)
	}
	return scanEvents(rows)
}

// QueryByStatus returns up to limit events whose kycStatus equals status.
func (s *PostgresStore) QueryByStatus(ctx context.Context, status kyc.Status, limit int) ([]kyc.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE kyc_status = $1 ORDER BY last_updated DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, transient("query events by status", err)
	}
	return scanEvents(rows)
}

// ScanAll returns up to limit events across all customers.
func (s *PostgresStore) ScanAll(ctx context.Context, limit int) ([]kyc.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY last_updated DESC LIMIT $1`, limit)
	if err != nil {
		return nil, transient("scan events", err)
	}
	return scanEvents(rows)
}

const selectColumns = `
	SELECT customer_id, event_type, kyc_status, document_url, verification_score, fraud_score, metadata, last_updated
	FROM kyc_events`

func scanEvents(rows *sql.Rows) ([]kyc.Event, error) {
	defer rows.Close()

	var out []kyc.Event
	for rows.Next() {
		var (
			e                 kyc.Event
			eventType, status string
			vScore, fScore    sql.NullFloat64
		)
		err := rows.Scan(&e.CustomerID, &eventType, &status, &e.DocumentURL, &vScore, &fScore, &e.Metadata, &e.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.EventType = kyc.EventType(eventType)
		e.KYCStatus = kyc.Status(status)
		if vScore.Valid {
			v := vScore.Float64
			e.VerificationScore = &v
		}
		if fScore.Valid {
			v := fScore.Float64
			e.FraudScore = &v
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("iterate event rows", err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// transient tags store I/O failures with the retryable sentinel while keeping
// the driver error visible in logs.
func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
