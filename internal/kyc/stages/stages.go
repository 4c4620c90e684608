// Package stages holds the built-in stage workers. Their scoring logic is a
// stand-in for real document, identity, fraud, and compliance providers; the
// coordinator treats every worker as a black box either way.
package stages

import (
	"math/rand"
	"sync"

	"kycflow/internal/kyc"
	"kycflow/internal/kyc/workflow"
)

// rng wraps a seedable source behind a mutex; rand.Rand is not safe for
// concurrent use and workers are shared across workflow runs.
type rng struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRNG(seed int64) *rng {
	return &rng{r: rand.New(rand.NewSource(seed))}
}

func (g *rng) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Float64()
}

// All builds the four canonical workers keyed by stage, seeded for
// reproducible runs.
func All(seed int64) map[kyc.EventType]workflow.StageWorker {
	return map[kyc.EventType]workflow.StageWorker{
		kyc.EventDocumentValidated:  NewDocumentValidator(seed),
		kyc.EventIdentityVerified:   NewIdentityVerifier(seed + 1),
		kyc.EventFraudChecked:       NewFraudChecker(seed + 2),
		kyc.EventComplianceComplete: NewComplianceReporter(),
	}
}

func ptr(v float64) *float64 { return &v }
