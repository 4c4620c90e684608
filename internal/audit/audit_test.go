package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc"
)

func entry(customerID, action string) Entry {
	return Entry{CustomerID: customerID, Action: action, Timestamp: time.Now()}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("list returns newest first", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Append(ctx, entry("cust-1", ActionWorkflowStarted)))
		require.NoError(t, s.Append(ctx, entry("cust-1", ActionStageCompleted)))
		require.NoError(t, s.Append(ctx, entry("cust-1", ActionWorkflowFinished)))

		entries, err := s.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, ActionWorkflowFinished, entries[0].Action)
		assert.Equal(t, ActionWorkflowStarted, entries[2].Action)
	})

	t.Run("list honors the limit", func(t *testing.T) {
		s := NewInMemoryStore()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Append(ctx, entry("cust-1", ActionStageCompleted)))
		}
		entries, err := s.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("capacity evicts the oldest entry", func(t *testing.T) {
		s := &InMemoryStore{cap: 3}
		require.NoError(t, s.Append(ctx, entry("cust-1", ActionWorkflowStarted)))
		require.NoError(t, s.Append(ctx, entry("cust-2", ActionWorkflowStarted)))
		require.NoError(t, s.Append(ctx, entry("cust-3", ActionWorkflowStarted)))
		require.NoError(t, s.Append(ctx, entry("cust-4", ActionWorkflowStarted)))

		entries, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for _, e := range entries {
			assert.NotEqual(t, "cust-1", e.CustomerID, "oldest entry must be gone")
		}
	})

	t.Run("list by customer filters and orders", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Append(ctx, entry("cust-1", ActionWorkflowStarted)))
		require.NoError(t, s.Append(ctx, entry("cust-2", ActionWorkflowStarted)))
		require.NoError(t, s.Append(ctx, entry("cust-1", ActionWorkflowFinished)))

		entries, err := s.ListByCustomer(ctx, "cust-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, ActionWorkflowFinished, entries[0].Action)
		assert.Equal(t, ActionWorkflowStarted, entries[1].Action)
	})
}

func TestPublisher(t *testing.T) {
	t.Run("emit stamps the time and enqueues", func(t *testing.T) {
		inbox := make(chan Entry, 1)
		p := NewPublisher(inbox, slog.New(slog.DiscardHandler))

		p.Emit(Entry{CustomerID: "cust-1", Action: ActionWorkflowStarted})

		got := <-inbox
		assert.Equal(t, "cust-1", got.CustomerID)
		assert.False(t, got.Timestamp.IsZero())
	})

	t.Run("full inbox drops instead of blocking", func(t *testing.T) {
		inbox := make(chan Entry, 1)
		p := NewPublisher(inbox, slog.New(slog.DiscardHandler))

		done := make(chan struct{})
		go func() {
			p.Emit(entry("cust-1", ActionWorkflowStarted))
			p.Emit(entry("cust-2", ActionWorkflowStarted))
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("emit blocked on a full inbox")
		}
		assert.Len(t, inbox, 1)
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		var p *Publisher
		p.Emit(entry("cust-1", ActionWorkflowStarted))
	})
}

func TestWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewInMemoryStore()
	inbox := make(chan Entry, 8)
	worker := NewWorker(store, inbox)

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Entry{CustomerID: "cust-1", Stage: kyc.EventDocumentValidated, Action: ActionStageCompleted}
	inbox <- Entry{CustomerID: "cust-1", Action: ActionWorkflowFinished}

	require.Eventually(t, func() bool {
		entries, err := store.List(ctx, 0)
		return err == nil && len(entries) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}
