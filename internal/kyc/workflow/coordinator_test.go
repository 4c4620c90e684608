package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/store"
)

// fakeWorker counts invocations and delegates to a per-test function.
type fakeWorker struct {
	mu    sync.Mutex
	calls int
	fn    func(in Input) (*Result, error)
}

func (w *fakeWorker) Invoke(ctx context.Context, in Input) (*Result, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	return w.fn(in)
}

func (w *fakeWorker) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func succeedWith(status kyc.Status, fraudScore *float64) func(Input) (*Result, error) {
	return func(in Input) (*Result, error) {
		return &Result{Status: status, FraudScore: fraudScore, DocumentURL: in.DocumentURL}, nil
	}
}

func ptr(v float64) *float64 { return &v }

type CoordinatorSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	workers map[kyc.EventType]*fakeWorker
	ctx     context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.workers = map[kyc.EventType]*fakeWorker{
		kyc.EventDocumentValidated:  {fn: succeedWith(kyc.StatusValidated, nil)},
		kyc.EventIdentityVerified:   {fn: succeedWith(kyc.StatusVerified, nil)},
		kyc.EventFraudChecked:       {fn: succeedWith(kyc.StatusVerified, ptr(0.12))},
		kyc.EventComplianceComplete: {fn: succeedWith(kyc.StatusCompleted, nil)},
	}
}

func (s *CoordinatorSuite) newCoordinator(opts ...Option) *Coordinator {
	workers := make(map[kyc.EventType]StageWorker, len(s.workers))
	for stage, w := range s.workers {
		workers[stage] = w
	}
	c, err := New(
		s.store,
		workers,
		Config{FraudThreshold: 0.7, MaxRetries: 2, RetryBackoff: time.Millisecond},
		slog.New(slog.DiscardHandler),
		metrics.New(prometheus.NewRegistry()),
		opts...,
	)
	s.Require().NoError(err)
	return c
}

func (s *CoordinatorSuite) events(customerID string) []kyc.Event {
	events, err := s.store.QueryByCustomer(s.ctx, customerID)
	s.Require().NoError(err)
	return events
}

func (s *CoordinatorSuite) TestNew() {
	s.Run("nil store is rejected", func() {
		_, err := New(nil, nil, DefaultConfig(), nil, metrics.New(prometheus.NewRegistry()))
		s.Error(err)
	})

	s.Run("missing stage worker is rejected", func() {
		workers := map[kyc.EventType]StageWorker{
			kyc.EventDocumentValidated: s.workers[kyc.EventDocumentValidated],
		}
		_, err := New(s.store, workers, DefaultConfig(), nil, metrics.New(prometheus.NewRegistry()))
		s.Error(err)
		s.Contains(err.Error(), "stage worker")
	})

	s.Run("threshold outside (0,1] is rejected", func() {
		workers := map[kyc.EventType]StageWorker{}
		for stage, w := range s.workers {
			workers[stage] = w
		}
		cfg := DefaultConfig()
		cfg.FraudThreshold = 1.5
		_, err := New(s.store, workers, cfg, nil, metrics.New(prometheus.NewRegistry()))
		s.Error(err)
	})
}

func (s *CoordinatorSuite) TestHappyPath() {
	c := s.newCoordinator()

	state, err := c.Run(s.ctx, "cust-1", "uploads/cust-1/doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateCompleted, state)

	events := s.events("cust-1")
	s.Require().Len(events, 4)

	progress := kyc.Derive(events)
	s.Equal(kyc.StatusCompleted, progress.CurrentStatus)
	s.Equal(4, progress.CompletedCount)

	// Writer-assigned timestamps are strictly increasing across stages.
	kyc.SortByTime(events)
	for i := 1; i < len(events); i++ {
		s.True(events[i].LastUpdated.After(events[i-1].LastUpdated))
	}

	for stage, w := range s.workers {
		s.Equal(1, w.callCount(), stage)
	}
}

func (s *CoordinatorSuite) TestMissingCustomerIDRejectedBeforeAnyWrite() {
	c := s.newCoordinator()

	state, err := c.Run(s.ctx, "", "doc.pdf")
	s.Error(err)
	s.Equal(StateIdle, state)

	all, err := s.store.ScanAll(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(all, "validation failures must not write any record")
}

func (s *CoordinatorSuite) TestIdempotentReentry() {
	c := s.newCoordinator()

	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateCompleted, state)

	state, err = c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateCompleted, state)

	s.Len(s.events("cust-1"), 4, "re-run must not duplicate records")
	for stage, w := range s.workers {
		s.Equal(1, w.callCount(), "worker %s must not be re-invoked", stage)
	}
}

func (s *CoordinatorSuite) TestResumeAfterPartialCrash() {
	// Stages 1 and 2 already have durable records; a restart must pick up at
	// stage 3.
	now := time.Now()
	s.Require().NoError(s.store.Put(s.ctx, kyc.Event{
		CustomerID: "cust-1", EventType: kyc.EventDocumentValidated,
		KYCStatus: kyc.StatusValidated, LastUpdated: now,
	}))
	s.Require().NoError(s.store.Put(s.ctx, kyc.Event{
		CustomerID: "cust-1", EventType: kyc.EventIdentityVerified,
		KYCStatus: kyc.StatusVerified, LastUpdated: now.Add(time.Second),
	}))

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateCompleted, state)

	s.Equal(0, s.workers[kyc.EventDocumentValidated].callCount())
	s.Equal(0, s.workers[kyc.EventIdentityVerified].callCount())
	s.Equal(1, s.workers[kyc.EventFraudChecked].callCount())
	s.Equal(1, s.workers[kyc.EventComplianceComplete].callCount())
	s.Len(s.events("cust-1"), 4)
}

func (s *CoordinatorSuite) TestFraudShortCircuit() {
	s.workers[kyc.EventFraudChecked].fn = succeedWith(kyc.StatusVerified, ptr(0.85))

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFraudFlagged, state)

	events := s.events("cust-1")
	s.Len(events, 3, "compliance stage must be skipped")
	s.Equal(0, s.workers[kyc.EventComplianceComplete].callCount())

	progress := kyc.Derive(events)
	s.Equal(kyc.StatusFraudDetected, progress.CurrentStatus)
}

func (s *CoordinatorSuite) TestFraudScoreAtThresholdFlags() {
	s.workers[kyc.EventFraudChecked].fn = succeedWith(kyc.StatusVerified, ptr(0.7))

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFraudFlagged, state)
}

func (s *CoordinatorSuite) TestTerminalWorkerFailureIsNotRetried() {
	s.workers[kyc.EventIdentityVerified].fn = func(Input) (*Result, error) {
		return nil, Terminal(errors.New("identity mismatch"))
	}

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFailed, state)

	s.Equal(1, s.workers[kyc.EventIdentityVerified].callCount(), "terminal failures must not retry")
	s.Equal(0, s.workers[kyc.EventFraudChecked].callCount(), "later stages must not run")

	events := s.events("cust-1")
	s.Require().Len(events, 2)
	progress := kyc.Derive(events)
	s.Equal(kyc.StatusFailed, progress.CurrentStatus)
}

func (s *CoordinatorSuite) TestTransientWorkerFailureRetriesThenSucceeds() {
	var mu sync.Mutex
	attempts := 0
	s.workers[kyc.EventDocumentValidated].fn = func(in Input) (*Result, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return nil, Transient(errors.New("validation service timeout"))
		}
		return &Result{Status: kyc.StatusValidated}, nil
	}

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateCompleted, state)
	s.Equal(3, s.workers[kyc.EventDocumentValidated].callCount())
}

func (s *CoordinatorSuite) TestTransientRetriesExhausted() {
	s.workers[kyc.EventDocumentValidated].fn = func(Input) (*Result, error) {
		return nil, Transient(errors.New("validation service down"))
	}

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFailed, state)

	// Initial attempt plus two retries.
	s.Equal(3, s.workers[kyc.EventDocumentValidated].callCount())

	events := s.events("cust-1")
	s.Require().Len(events, 1)
	s.Equal(kyc.StatusFailed, events[0].KYCStatus)
}

func (s *CoordinatorSuite) TestBusinessRejectionRecordedAsFailed() {
	// A worker reporting FAILED as its result (an unreadable document, say)
	// ends the workflow with that record in place.
	s.workers[kyc.EventDocumentValidated].fn = succeedWith(kyc.StatusFailed, nil)

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFailed, state)

	events := s.events("cust-1")
	s.Require().Len(events, 1)
	s.Equal(kyc.StatusFailed, events[0].KYCStatus)
	s.Equal(0, s.workers[kyc.EventIdentityVerified].callCount())
}

func (s *CoordinatorSuite) TestReentryAfterFraudFlagStaysTerminal() {
	s.workers[kyc.EventFraudChecked].fn = succeedWith(kyc.StatusVerified, ptr(0.95))

	c := s.newCoordinator()
	state, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFraudFlagged, state)

	state, err = c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)
	s.Equal(StateFraudFlagged, state)
	s.Equal(1, s.workers[kyc.EventFraudChecked].callCount())
	s.Equal(0, s.workers[kyc.EventComplianceComplete].callCount())
}

func (s *CoordinatorSuite) TestPriorEventsFlowToLaterStages() {
	var got []kyc.Event
	s.workers[kyc.EventComplianceComplete].fn = func(in Input) (*Result, error) {
		got = in.Prior
		return &Result{Status: kyc.StatusCompleted}, nil
	}

	c := s.newCoordinator()
	_, err := c.Run(s.ctx, "cust-1", "doc.pdf")
	s.Require().NoError(err)

	s.Len(got, 3, "compliance stage must see all three earlier records")
}
