// Package audit records workflow transitions for the operational log view.
// Entries are emitted from domain logic and kept transport-agnostic so stores
// and sinks can fan out.
package audit

import (
	"time"

	"kycflow/internal/kyc"
)

// Entry captures one workflow action: a stage invocation, skip, transition,
// or terminal outcome.
type Entry struct {
	Timestamp  time.Time     `json:"timestamp"`
	CustomerID string        `json:"customerId"`
	Stage      kyc.EventType `json:"stage,omitempty"`
	Action     string        `json:"action"`
	Detail     string        `json:"detail,omitempty"`
}

// Actions recorded by the coordinator.
const (
	ActionWorkflowStarted  = "workflow.started"
	ActionStageCompleted   = "stage.completed"
	ActionStageSkipped     = "stage.skipped"
	ActionStageFailed      = "stage.failed"
	ActionWorkflowFinished = "workflow.finished"
)
