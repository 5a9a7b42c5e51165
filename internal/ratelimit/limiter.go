package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jengahacks/backend/config"
)

// CounterStore is the persistence the limiter needs.
type CounterStore interface {
	Increment(ctx context.Context, scope, key string, window time.Duration) (int, time.Time, error)
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Scope      string
	RetryAfter time.Duration
}

// Message returns the caller-facing rejection text.
func (d Decision) Message() string {
	return RetryMessage(d.RetryAfter)
}

// RetryMessage renders the standard too-many-attempts text for a wait time.
func RetryMessage(wait time.Duration) string {
	mins := int((wait + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("too many attempts, try again in %d minutes", mins)
}

// Limiter applies the submission ceilings. The email counter is checked
// before the IP counter; a rejected attempt still consumes budget, which is
// why increments happen outside the admission transaction.
type Limiter struct {
	store  CounterStore
	cfg    config.RateLimitConfig
	logger *zap.Logger
}

// NewLimiter creates a limiter with the configured ceilings.
func NewLimiter(store CounterStore, cfg config.RateLimitConfig, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: store, cfg: cfg, logger: logger}
}

// Check records one attempt for the email and, when the email is still under
// its ceiling, one for the IP. The first exceeded ceiling wins.
func (l *Limiter) Check(ctx context.Context, email, ip string) (Decision, error) {
	window := l.cfg.Window()

	attempts, windowStart, err := l.store.Increment(ctx, ScopeEmail, email, window)
	if err != nil {
		return Decision{}, fmt.Errorf("increment email counter: %w", err)
	}
	if attempts > l.cfg.EmailMaxAttempts {
		d := Decision{Scope: ScopeEmail, RetryAfter: remaining(windowStart, window)}
		l.logger.Info("rate limit exceeded", zap.String("scope", ScopeEmail), zap.Int("attempts", attempts))
		return d, nil
	}

	if ip != "" {
		attempts, windowStart, err = l.store.Increment(ctx, ScopeIP, ip, window)
		if err != nil {
			return Decision{}, fmt.Errorf("increment ip counter: %w", err)
		}
		if attempts > l.cfg.IPMaxAttempts {
			d := Decision{Scope: ScopeIP, RetryAfter: remaining(windowStart, window)}
			l.logger.Info("rate limit exceeded", zap.String("scope", ScopeIP), zap.Int("attempts", attempts))
			return d, nil
		}
	}

	return Decision{Allowed: true}, nil
}

func remaining(windowStart time.Time, window time.Duration) time.Duration {
	left := window - time.Since(windowStart)
	if left < 0 {
		left = 0
	}
	return left
}
