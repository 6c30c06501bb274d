package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On throttling it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates a limiter allowing one event per interval.
func NewAdaptiveLimiter(interval time.Duration) *AdaptiveLimiter {
	initial := rate.Every(interval)
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initial, 1),
		maxRate:     initial * 2,
		minRate:     initial / 4,
		currentRate: initial,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("resilience: throttled, reducing oracle rate",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// GuardConfig describes how one oracle is called.
type GuardConfig struct {
	Name string

	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration

	// Pace is the initial minimum spacing between attempts. Zero disables
	// pacing.
	Pace time.Duration

	Retry   RetryConfig
	Breaker CircuitBreakerConfig

	// Throttled reports whether an error means the oracle asked us to slow
	// down.
	Throttled func(err error) bool
}

// Guard wraps every call to one oracle.
type Guard struct {
	cfg     GuardConfig
	limiter *AdaptiveLimiter
	breaker *CircuitBreaker
}

// NewGuard builds a guard. The breaker name defaults to the guard name.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = cfg.Name
	}
	g := &Guard{cfg: cfg, breaker: NewCircuitBreaker(cfg.Breaker)}
	if cfg.Pace > 0 {
		g.limiter = NewAdaptiveLimiter(cfg.Pace)
	}
	return g
}

// Breaker exposes the guard's circuit breaker.
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// Limiter exposes the guard's limiter; nil when unpaced.
func (g *Guard) Limiter() *AdaptiveLimiter {
	return g.limiter
}

// Call runs fn under the guard: paced, behind the breaker, with a deadline
// per attempt, and retried per the guard's policy. target names what the
// call is about in logs.
func Call[T any](ctx context.Context, g *Guard, target string, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := g.cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(g.cfg.Name, target)
	}

	return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		var zero T
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return zero, eris.Wrapf(err, "resilience: %s pace wait", g.cfg.Name)
			}
		}

		return ExecuteVal(ctx, g.breaker, func(ctx context.Context) (T, error) {
			callCtx, cancel := ctx, context.CancelFunc(func() {})
			if g.cfg.Timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			}
			defer cancel()

			val, err := fn(callCtx)
			if g.limiter != nil {
				switch {
				case err == nil:
					g.limiter.OnSuccess()
				case g.cfg.Throttled != nil && g.cfg.Throttled(err):
					g.limiter.OnRateLimit()
				}
			}
			if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return val, eris.Wrapf(context.DeadlineExceeded, "resilience: %s call for %s timed out after %s", g.cfg.Name, target, g.cfg.Timeout)
			}
			return val, err
		})
	})
}
