package stages

import (
	"context"
	"errors"
	"fmt"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/workflow"
)

// IdentityVerifier cross-references the validated document against identity
// sources. Roughly 10% of verifications fail.
type IdentityVerifier struct {
	rng *rng
}

func NewIdentityVerifier(seed int64) *IdentityVerifier {
	return &IdentityVerifier{rng: newRNG(seed)}
}

func (v *IdentityVerifier) Invoke(ctx context.Context, in workflow.Input) (*workflow.Result, error) {
	if in.CustomerID == "" {
		return nil, workflow.Terminal(errors.New("missing customerId in stage input"))
	}

	score := 0.70 + v.rng.Float64()*0.30
	verified := v.rng.Float64() > 0.10

	status := kyc.StatusVerified
	if !verified {
		status = kyc.StatusFailed
	}

	return &workflow.Result{
		Status:            status,
		DocumentURL:       priorDocumentURL(in),
		VerificationScore: ptr(score),
		Metadata:          fmt.Sprintf("Identity verified with score: %.2f", score),
	}, nil
}

// priorDocumentURL carries the document reference forward from the earliest
// stage that recorded one.
func priorDocumentURL(in workflow.Input) string {
	for _, e := range in.Prior {
		if e.DocumentURL != "" {
			return e.DocumentURL
		}
	}
	return in.DocumentURL
}
