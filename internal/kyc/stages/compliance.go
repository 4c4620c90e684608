package stages

import (
	"context"
	"errors"
	"fmt"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/workflow"
)

// ComplianceReporter summarizes the completed checks into a report artifact.
// It only runs when the fraud stage stayed under the threshold, so its
// outcome is always COMPLETED.
type ComplianceReporter struct{}

func NewComplianceReporter() *ComplianceReporter {
	return &ComplianceReporter{}
}

func (r *ComplianceReporter) Invoke(ctx context.Context, in workflow.Input) (*workflow.Result, error) {
	if in.CustomerID == "" {
		return nil, workflow.Terminal(errors.New("missing customerId in stage input"))
	}

	var vScore, fScore float64
	for _, e := range in.Prior {
		switch e.EventType {
		case kyc.EventIdentityVerified:
			if e.VerificationScore != nil {
				vScore = *e.VerificationScore
			}
		case kyc.EventFraudChecked:
			if e.FraudScore != nil {
				fScore = *e.FraudScore
			}
		}
	}

	reportURL := fmt.Sprintf("reports/%s/compliance-report.txt", in.CustomerID)

	return &workflow.Result{
		Status:      kyc.StatusCompleted,
		DocumentURL: reportURL,
		Metadata: fmt.Sprintf("KYC process completed - verification score %.2f, fraud score %.2f",
			vScore, fScore),
	}, nil
}
