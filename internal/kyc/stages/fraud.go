package stages

import (
	"context"
	"errors"
	"fmt"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/workflow"
)

// FraudChecker scores the customer for fraud risk. Most customers land in the
// low band (0.0-0.3); about 5% draw a high-risk score (0.7-1.0). The worker
// only reports the score; flagging against the threshold is the
// coordinator's policy decision.
type FraudChecker struct {
	rng *rng
}

func NewFraudChecker(seed int64) *FraudChecker {
	return &FraudChecker{rng: newRNG(seed)}
}

func (c *FraudChecker) Invoke(ctx context.Context, in workflow.Input) (*workflow.Result, error) {
	if in.CustomerID == "" {
		return nil, workflow.Terminal(errors.New("missing customerId in stage input"))
	}

	score := c.rng.Float64() * 0.3
	if c.rng.Float64() < 0.05 {
		score = 0.7 + c.rng.Float64()*0.3
	}

	return &workflow.Result{
		Status:      kyc.StatusVerified,
		DocumentURL: priorDocumentURL(in),
		FraudScore:  ptr(score),
		Metadata:    fmt.Sprintf("Fraud check completed - Risk score: %.2f", score),
	}, nil
}
