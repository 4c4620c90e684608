// Package workflow drives a customer's events through the four fixed
// verification stages. Each stage's durable event record is the
// synchronization point: no lock is held across stage boundaries, and
// restart safety comes from re-querying the store before invoking a worker.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kycflow/internal/audit"
	"kycflow/internal/kyc"
	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/store"
	dErrors "kycflow/pkg/domain-errors"
)

// State names a coordinator position in the stage sequence.
type State string

const (
	StateIdle          State = "Idle"
	StateValidating    State = "Validating"
	StateVerifying     State = "Verifying"
	StateFraudChecking State = "FraudChecking"
	StateReporting     State = "Reporting"
	StateCompleted     State = "Completed"
	StateFailed        State = "Failed"
	StateFraudFlagged  State = "FraudFlagged"
)

// Terminal reports whether s ends the workflow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateFraudFlagged
}

// stageState maps each canonical stage to the state the coordinator is in
// while running it.
var stageState = map[kyc.EventType]State{
	kyc.EventDocumentValidated:  StateValidating,
	kyc.EventIdentityVerified:   StateVerifying,
	kyc.EventFraudChecked:       StateFraudChecking,
	kyc.EventComplianceComplete: StateReporting,
}

// Config tunes retry and fraud policy.
type Config struct {
	// FraudThreshold flags the customer when the fraud stage's score meets or
	// exceeds it. The short-circuit decision lives here, not in the fraud
	// worker, so the policy is auditable in one place.
	FraudThreshold float64
	// MaxRetries bounds re-invocations after transient failures.
	MaxRetries int
	// RetryBackoff is the base delay between retries; attempt n waits n times
	// this long.
	RetryBackoff time.Duration
}

// DefaultConfig returns the production retry bound and fraud threshold.
func DefaultConfig() Config {
	return Config{
		FraudThreshold: 0.7,
		MaxRetries:     2,
		RetryBackoff:   2 * time.Second,
	}
}

// Coordinator is the per-customer state machine sequencing stage invocations.
// One instance serves all customers; Run carries no cross-call state, so
// concurrent runs for different customers are fully independent.
type Coordinator struct {
	store   store.EventStore
	workers map[kyc.EventType]StageWorker
	cfg     Config
	clock   *Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAudit attaches an audit publisher for transition records.
func WithAudit(p *audit.Publisher) Option {
	return func(c *Coordinator) { c.audit = p }
}

// WithClock overrides the timestamp source; tests use it for determinism.
func WithClock(clock *Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// New constructs a coordinator. workers must cover all four canonical stages.
func New(
	eventStore store.EventStore,
	workers map[kyc.EventType]StageWorker,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) (*Coordinator, error) {
	if eventStore == nil {
		return nil, fmt.Errorf("event store is required")
	}
	for _, stage := range kyc.Stages {
		if workers[stage] == nil {
			return nil, fmt.Errorf("stage worker for %s is required", stage)
		}
	}
	if cfg.FraudThreshold <= 0 || cfg.FraudThreshold > 1 {
		return nil, fmt.Errorf("fraud threshold must be in (0,1], got %v", cfg.FraudThreshold)
	}
	if m == nil {
		return nil, fmt.Errorf("metrics are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		store:   eventStore,
		workers: workers,
		cfg:     cfg,
		clock:   NewClock(),
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run advances customerID through the stage sequence until a terminal state.
// Stages whose event record already exists are skipped without re-invoking
// their worker, so re-running after a partial crash neither duplicates
// records nor repeats work.
func (c *Coordinator) Run(ctx context.Context, customerID, documentURL string) (State, error) {
	if customerID == "" {
		return StateIdle, dErrors.New(dErrors.CodeBadRequest, "customerId is required")
	}

	c.metrics.WorkflowsStarted.Inc()
	c.audit.Emit(audit.Entry{CustomerID: customerID, Action: audit.ActionWorkflowStarted})
	c.logger.Info("workflow started", "customer_id", customerID)

	for _, stage := range kyc.Stages {
		state := stageState[stage]

		events, err := c.queryWithRetry(ctx, customerID)
		if err != nil {
			return c.finish(customerID, StateFailed, fmt.Errorf("query events before %s: %w", stage, err))
		}

		if existing := findStage(events, stage); existing != nil {
			c.metrics.StageSkips.WithLabelValues(string(stage)).Inc()
			c.audit.Emit(audit.Entry{CustomerID: customerID, Stage: stage, Action: audit.ActionStageSkipped})
			c.logger.Info("stage record exists, skipping worker",
				"customer_id", customerID, "stage", stage, "state", state)
			if done, final := c.terminalFromExisting(stage, existing); done {
				return c.finish(customerID, final, nil)
			}
			continue
		}

		result, err := c.invokeWithRetry(ctx, stage, Input{
			CustomerID:  customerID,
			DocumentURL: documentURL,
			Prior:       events,
		})
		if err != nil {
			c.recordStageFailure(ctx, customerID, stage, err)
			return c.finish(customerID, StateFailed, nil)
		}

		event := kyc.Event{
			CustomerID:        customerID,
			EventType:         stage,
			KYCStatus:         result.Status,
			DocumentURL:       result.DocumentURL,
			VerificationScore: result.VerificationScore,
			FraudScore:        result.FraudScore,
			Metadata:          result.Metadata,
			LastUpdated:       c.clock.Next(),
		}

		flagged := stage == kyc.EventFraudChecked && c.overThreshold(result.FraudScore)
		if flagged {
			event.KYCStatus = kyc.StatusFraudDetected
		}

		if err := c.putWithRetry(ctx, event); err != nil {
			return c.finish(customerID, StateFailed, fmt.Errorf("write %s record: %w", stage, err))
		}
		c.metrics.EventsWritten.Inc()
		c.audit.Emit(audit.Entry{
			CustomerID: customerID,
			Stage:      stage,
			Action:     audit.ActionStageCompleted,
			Detail:     string(event.KYCStatus),
		})
		c.logger.Info("stage completed",
			"customer_id", customerID, "stage", stage, "status", event.KYCStatus)

		if flagged {
			return c.finish(customerID, StateFraudFlagged, nil)
		}
		if event.KYCStatus == kyc.StatusFailed {
			return c.finish(customerID, StateFailed, nil)
		}
	}

	return c.finish(customerID, StateCompleted, nil)
}

// terminalFromExisting decides whether a pre-existing stage record already
// ended the workflow on a previous run.
func (c *Coordinator) terminalFromExisting(stage kyc.EventType, event *kyc.Event) (bool, State) {
	switch event.KYCStatus {
	case kyc.StatusFailed:
		return true, StateFailed
	case kyc.StatusFraudDetected:
		if stage == kyc.EventFraudChecked {
			return true, StateFraudFlagged
		}
		return true, StateFailed
	}
	return false, StateIdle
}

func (c *Coordinator) overThreshold(score *float64) bool {
	return score != nil && *score >= c.cfg.FraudThreshold
}

// recordStageFailure writes the FAILED record for the current stage. Failures
// are data, not exceptions: readers observe them as status values.
func (c *Coordinator) recordStageFailure(ctx context.Context, customerID string, stage kyc.EventType, cause error) {
	event := kyc.Event{
		CustomerID:  customerID,
		EventType:   stage,
		KYCStatus:   kyc.StatusFailed,
		Metadata:    fmt.Sprintf("stage failed: %v", cause),
		LastUpdated: c.clock.Next(),
	}
	if err := c.putWithRetry(ctx, event); err != nil {
		// The store is down and the failure record could not land; the
		// workflow will appear stuck at the prior stage until re-run.
		c.logger.Error("failed to write FAILED record",
			"customer_id", customerID, "stage", stage, "error", err)
	} else {
		c.metrics.EventsWritten.Inc()
	}
	c.audit.Emit(audit.Entry{
		CustomerID: customerID,
		Stage:      stage,
		Action:     audit.ActionStageFailed,
		Detail:     cause.Error(),
	})
	c.logger.Warn("stage failed",
		"customer_id", customerID, "stage", stage, "error", cause)
}

func (c *Coordinator) finish(customerID string, state State, err error) (State, error) {
	c.metrics.WorkflowsFinished.WithLabelValues(string(state)).Inc()
	c.audit.Emit(audit.Entry{
		CustomerID: customerID,
		Action:     audit.ActionWorkflowFinished,
		Detail:     string(state),
	})
	if err != nil {
		c.logger.Error("workflow aborted", "customer_id", customerID, "state", state, "error", err)
	} else {
		c.logger.Info("workflow finished", "customer_id", customerID, "state", state)
	}
	return state, err
}

// invokeWithRetry runs the stage worker, retrying transient failures up to
// the configured bound. Terminal failures return immediately.
func (c *Coordinator) invokeWithRetry(ctx context.Context, stage kyc.EventType, in Input) (*Result, error) {
	worker := c.workers[stage]

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		result, err := worker.Invoke(ctx, in)
		c.metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())

		if err == nil {
			c.metrics.StageInvocations.WithLabelValues(string(stage), "success").Inc()
			return result, nil
		}
		if !IsTransient(err) {
			c.metrics.StageInvocations.WithLabelValues(string(stage), "terminal").Inc()
			return nil, err
		}
		c.metrics.StageInvocations.WithLabelValues(string(stage), "transient").Inc()
		c.logger.Warn("transient stage failure, will retry",
			"stage", stage, "customer_id", in.CustomerID, "attempt", attempt, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Coordinator) putWithRetry(ctx context.Context, event kyc.Event) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.StoreRetries.Inc()
			if err := c.sleep(ctx, attempt); err != nil {
				return err
			}
		}
		err := c.store.Put(ctx, event)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrUnavailable) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Coordinator) queryWithRetry(ctx context.Context, customerID string) ([]kyc.Event, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.StoreRetries.Inc()
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
		events, err := c.store.QueryByCustomer(ctx, customerID)
		if err == nil {
			return events, nil
		}
		if !errors.Is(err, store.ErrUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Coordinator) sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * c.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func findStage(events []kyc.Event, stage kyc.EventType) *kyc.Event {
	for i := range events {
		if events[i].EventType == stage {
			return &events[i]
		}
	}
	return nil
}
