package stages

import (
	"context"
	"errors"
	"fmt"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/workflow"
)

// DocumentValidator checks the uploaded document for format compliance, size
// limits, and basic quality. Roughly 5% of documents fail validation.
type DocumentValidator struct {
	rng *rng
}

func NewDocumentValidator(seed int64) *DocumentValidator {
	return &DocumentValidator{rng: newRNG(seed)}
}

func (v *DocumentValidator) Invoke(ctx context.Context, in workflow.Input) (*workflow.Result, error) {
	if in.CustomerID == "" {
		return nil, workflow.Terminal(errors.New("missing customerId in stage input"))
	}

	documentURL := in.DocumentURL
	if documentURL == "" {
		return nil, workflow.Terminal(errors.New("no document to validate"))
	}

	score := 0.75 + v.rng.Float64()*0.25
	valid := v.rng.Float64() > 0.05

	status := kyc.StatusValidated
	if !valid {
		status = kyc.StatusFailed
	}

	return &workflow.Result{
		Status:            status,
		DocumentURL:       documentURL,
		VerificationScore: ptr(score),
		Metadata:          fmt.Sprintf("Document validated with score: %.2f", score),
	}, nil
}
