package kyc

import "time"

// EventType identifies which verification stage produced an event. The four
// canonical stages form a closed set; anything else is stored but ignored by
// progress accounting.
type EventType string

const (
	EventDocumentValidated  EventType = "Document.Validated"
	EventIdentityVerified   EventType = "Identity.Verified"
	EventFraudChecked       EventType = "Fraud.Checked"
	EventComplianceComplete EventType = "Compliance.Completed"
)

// Stages lists the canonical stages in workflow order.
var Stages = []EventType{
	EventDocumentValidated,
	EventIdentityVerified,
	EventFraudChecked,
	EventComplianceComplete,
}

// NumStages is the denominator for fractional progress.
const NumStages = 4

// StageIndex returns the 1-based position of t in the canonical stage order,
// or 0 when t is not a canonical stage.
func (t EventType) StageIndex() int {
	for i, s := range Stages {
		if s == t {
			return i + 1
		}
	}
	return 0
}

// Canonical reports whether t is one of the four workflow stages.
func (t EventType) Canonical() bool { return t.StageIndex() > 0 }

// Status is the KYC status carried by an event. It reflects the state as of
// that event, not necessarily the customer's final status.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusValidated     Status = "VALIDATED"
	StatusVerified      Status = "VERIFIED"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
	StatusFraudDetected Status = "FRAUD_DETECTED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusVerified, StatusCompleted, StatusFailed, StatusFraudDetected:
		return true
	}
	return false
}

// Event is the sole persisted entity: one immutable record per
// (customerId, eventType) pair, upserted on re-run of the same stage.
// Optional fields use pointers so an absent value stays absent on the wire
// instead of being defaulted to zero.
type Event struct {
	CustomerID        string    `json:"customerId"`
	EventType         EventType `json:"eventType"`
	KYCStatus         Status    `json:"kycStatus"`
	DocumentURL       string    `json:"documentUrl,omitempty"`
	VerificationScore *float64  `json:"verificationScore,omitempty"`
	FraudScore        *float64  `json:"fraudScore,omitempty"`
	Metadata          string    `json:"metadata,omitempty"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// Key returns the upsert key for the event.
func (e Event) Key() (customerID string, eventType EventType) {
	return e.CustomerID, e.EventType
}
