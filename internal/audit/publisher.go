package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is the append/list surface for audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Entry, error)
}

// Publisher hands entries to the worker through a buffered channel so the
// coordinator's hot path never blocks on the audit sink. Entries are dropped
// (with a log line) when the buffer is full; the audit trail is an
// operational aid, not the source of truth.
type Publisher struct {
	inbox  chan<- Entry
	logger *slog.Logger
}

// NewPublisher creates a publisher feeding the given inbox.
func NewPublisher(inbox chan<- Entry, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

// Emit enqueues an entry, stamping the time when unset.
func (p *Publisher) Emit(entry Entry) {
	if p == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	select {
	case p.inbox <- entry:
	default:
		if p.logger != nil {
			p.logger.Warn("audit inbox full, dropping entry",
				"customer_id", entry.CustomerID,
				"action", entry.Action,
			)
		}
	}
}
