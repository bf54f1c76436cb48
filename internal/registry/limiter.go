package registry

import (
	"github.com/boltshop/domain-gateway/internal/core"
	"github.com/boltshop/domain-gateway/internal/verify"
)

const DefaultMaxAttempts = 10

// AttemptLimiter enforces the hard verification attempt cap. It is
// consulted before any DNS I/O and records outcomes afterwards; both
// steps run under the binding's row lock.
type AttemptLimiter struct {
	Max int
}

func NewAttemptLimiter(max int) AttemptLimiter {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return AttemptLimiter{Max: max}
}

// Exhausted reports whether the binding has used up its attempts. A
// binding at the cap is transitioned to locked by the caller.
func (l AttemptLimiter) Exhausted(b *core.DomainBinding) bool {
	return b.State == core.StateLocked || b.AttemptCount >= l.Max
}

// Record applies attempt accounting for a checker outcome. Definite
// mismatches consume an attempt and may lock the binding; a successful
// verification resets the counter; transient resolver failures are not
// charged against the tenant.
func (l AttemptLimiter) Record(b *core.DomainBinding, outcome verify.Outcome) {
	switch outcome {
	case verify.OutcomeVerified:
		b.AttemptCount = 0
	case verify.OutcomeNotFound:
		b.AttemptCount++
		if b.AttemptCount >= l.Max {
			b.State = core.StateLocked
		}
	case verify.OutcomeTransient:
		// not counted
	}
}
