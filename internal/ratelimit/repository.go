package ratelimit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counter scopes. Each scope has its own ceiling; keys are the normalized
// email address or the client IP.
const (
	ScopeEmail = "email"
	ScopeIP    = "ip"
)

// Repository persists fixed-window attempt counters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rate limit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Increment bumps the counter for (scope, key) in one statement, resetting it
// when the window has lapsed, and returns the post-increment state. Running
// as a single statement makes concurrent attempts serialize on the row, and
// keeps the increment durable even when the caller's later work rolls back.
func (r *Repository) Increment(ctx context.Context, scope, key string, window time.Duration) (int, time.Time, error) {
	const q = `INSERT INTO rate_limit_counters (scope, key, attempts, window_start)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (scope, key) DO UPDATE SET
			attempts = CASE
				WHEN rate_limit_counters.window_start <= NOW() - make_interval(secs => $3)
				THEN 1
				ELSE rate_limit_counters.attempts + 1
			END,
			window_start = CASE
				WHEN rate_limit_counters.window_start <= NOW() - make_interval(secs => $3)
				THEN NOW()
				ELSE rate_limit_counters.window_start
			END
		RETURNING attempts, window_start`
	var attempts int
	var windowStart time.Time
	err := r.pool.QueryRow(ctx, q, scope, key, window.Seconds()).Scan(&attempts, &windowStart)
	if err != nil {
		return 0, time.Time{}, err
	}
	return attempts, windowStart, nil
}
