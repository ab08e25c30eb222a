package providers

import (
	"context"

	"photoflow/internal/resilience"
)

// guarded is the shared base for concrete providers: it owns the resilience
// policy so retry and circuit breaker concerns live in exactly one place
// and adapters only map requests and responses.
type guarded struct {
	policy *resilience.Policy
}

// call runs op under the provider's policy and converts the outcome into
// call metadata. The metadata is returned for failures too so callers can
// record what the wrapper observed.
func (g *guarded) call(ctx context.Context, op func(context.Context) error) (CallMeta, error) {
	res := g.policy.Execute(ctx, op)
	return CallMeta{
		Duration:      res.Duration,
		RetryAttempts: res.Retries,
		BreakerState:  res.BreakerState,
		TimedOut:      res.TimedOut,
	}, res.Err
}

// BreakerState exposes the provider's current circuit state for health
// reporting.
func (g *guarded) BreakerState() resilience.BreakerState {
	return g.policy.State()
}
