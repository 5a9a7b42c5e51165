package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jengahacks/backend/internal/ratelimit"
	"github.com/jengahacks/backend/pkg/response"
)

// Throttle returns an advisory per-IP fixed-window limiter in front of the
// submission route. It exists to shed abusive traffic early; the Postgres
// counters remain the authority, so a Redis outage fails open.
func Throttle(rdb *redis.Client, max int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := "throttle:ip:" + c.ClientIP()
		ctx := c.Request.Context()

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("throttle counter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if n == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				logger.Warn("throttle expire failed", zap.Error(err), zap.String("key", key))
			}
		}
		if n > int64(max) {
			wait := window
			if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				wait = ttl
			}
			response.TooManyRequests(c, ratelimit.RetryMessage(wait))
			c.Abort()
			return
		}
		c.Next()
	}
}
