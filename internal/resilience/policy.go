package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
)

// BreakerState enumerates circuit breaker states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// ErrCircuitOpen is returned without attempting the operation while the
// breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// Config tunes retry and circuit breaker behavior for one provider.
type Config struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Timeout           time.Duration
	FailureThreshold  int
	Cooldown          time.Duration
}

// DefaultConfig returns the policy applied to providers unless overridden.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Timeout:           60 * time.Second,
		FailureThreshold:  5,
		Cooldown:          30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.InitialDelay
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	return c
}

// Result reports the outcome of one wrapped call. Err is nil on success;
// callers branch on the result instead of unwinding, so fallback policy
// never needs exception-style handling.
type Result struct {
	Err          error
	Duration     time.Duration
	Retries      int
	BreakerState BreakerState
	TimedOut     bool
}

// Success reports whether the wrapped call ultimately succeeded.
func (r Result) Success() bool { return r.Err == nil }

// Policy wraps outbound provider calls with bounded retry, exponential
// backoff, a per-attempt timeout, and a circuit breaker. Each provider
// instance owns its own Policy: breaker state is never shared across
// provider types, so one provider tripping open cannot mask another.
type Policy struct {
	name   string
	cfg    Config
	logger zerolog.Logger

	mu               sync.Mutex
	state            BreakerState
	failures         int
	openedAt         time.Time
	halfOpenInFlight bool

	now func() time.Time
}

// NewPolicy constructs a Policy named after the provider it guards.
func NewPolicy(name string, cfg Config, logger zerolog.Logger) *Policy {
	return &Policy{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("provider", name).Logger(),
		state:  BreakerClosed,
		now:    time.Now,
	}
}

// State returns the current breaker state, accounting for an elapsed
// cooldown on an open breaker.
func (p *Policy) State() BreakerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == BreakerOpen && p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return p.state
}

// Execute runs op under the policy. While the breaker is closed, failures
// retry up to MaxAttempts with exponential backoff; while open, the call
// fails immediately with ErrCircuitOpen and op is never invoked; while
// half-open, exactly one trial attempt is allowed through with no retries.
func (p *Policy) Execute(ctx context.Context, op func(context.Context) error) Result {
	start := p.now()

	mode, ok := p.admit()
	if !ok {
		return Result{
			Err:          ErrCircuitOpen,
			Duration:     p.now().Sub(start),
			BreakerState: BreakerOpen,
		}
	}

	maxAttempts := p.cfg.MaxAttempts
	if mode == BreakerHalfOpen {
		maxAttempts = 1
	}

	var (
		lastErr  error
		retries  int
		timedOut bool
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			retries++
			if err := p.sleep(ctx, p.backoff(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		err := p.invoke(ctx, op)
		if err == nil {
			p.recordSuccess(mode)
			return Result{
				Duration:     p.now().Sub(start),
				Retries:      retries,
				BreakerState: p.State(),
			}
		}
		lastErr = err
		if isTimeout(err) {
			timedOut = true
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("provider call failed")
		if !isRetryable(err) {
			break
		}
	}

	p.recordFailure(mode)
	return Result{
		Err:          lastErr,
		Duration:     p.now().Sub(start),
		Retries:      retries,
		BreakerState: p.State(),
		TimedOut:     timedOut,
	}
}

// admit decides whether a call may proceed and in which breaker mode.
func (p *Policy) admit() (BreakerState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case BreakerOpen:
		if p.now().Sub(p.openedAt) < p.cfg.Cooldown {
			return BreakerOpen, false
		}
		p.state = BreakerHalfOpen
		p.halfOpenInFlight = true
		p.logger.Info().Msg("circuit half-open, allowing trial call")
		return BreakerHalfOpen, true
	case BreakerHalfOpen:
		if p.halfOpenInFlight {
			return BreakerOpen, false
		}
		p.halfOpenInFlight = true
		return BreakerHalfOpen, true
	default:
		return BreakerClosed, true
	}
}

func (p *Policy) recordSuccess(mode BreakerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mode == BreakerHalfOpen {
		p.logger.Info().Msg("circuit closed after successful trial")
	}
	p.state = BreakerClosed
	p.failures = 0
	p.halfOpenInFlight = false
}

func (p *Policy) recordFailure(mode BreakerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halfOpenInFlight = false
	if mode == BreakerHalfOpen {
		p.state = BreakerOpen
		p.openedAt = p.now()
		p.logger.Warn().Msg("trial call failed, circuit reopened")
		return
	}
	p.failures++
	if p.failures >= p.cfg.FailureThreshold {
		p.state = BreakerOpen
		p.openedAt = p.now()
		p.logger.Warn().Int("failures", p.failures).Msg("failure threshold reached, circuit opened")
	}
}

// invoke runs op under the configured per-attempt timeout.
func (p *Policy) invoke(ctx context.Context, op func(context.Context) error) error {
	if p.cfg.Timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	err := op(attemptCtx)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded {
		return context.DeadlineExceeded
	}
	return err
}

// backoff computes the delay before retry attempt n using a capped
// exponential schedule.
func (p *Policy) backoff(n int) time.Duration {
	delay := float64(p.cfg.InitialDelay)
	for i := 0; i < n; i++ {
		delay *= p.cfg.BackoffMultiplier
	}
	if delay > float64(p.cfg.MaxDelay) {
		delay = float64(p.cfg.MaxDelay)
	}
	return time.Duration(delay)
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// isRetryable treats everything as retryable except provider errors that
// explicitly mark themselves permanent and caller cancellation.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return true
}
