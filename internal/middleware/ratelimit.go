package middleware

import (
  "fmt"
  "net/http"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/redis/go-redis/v9"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
)

// RateLimitMiddleware throttles anonymous verification traffic with a fixed
// window counter per client ip. Redis failures fail open so a cache outage
// never blocks the API.
type RateLimitMiddleware struct {
  log    *logger.Logger
  client *redis.Client
  limit  int
  window time.Duration
}

func NewRateLimitMiddleware(log *logger.Logger, client *redis.Client, limit int, window time.Duration) *RateLimitMiddleware {
  middlewareLogger := log.With("Middleware", "RateLimitMiddleware")
  return &RateLimitMiddleware{
    log:    middlewareLogger,
    client: client,
    limit:  limit,
    window: window,
  }
}

func (rl *RateLimitMiddleware) Limit(scope string) gin.HandlerFunc {
  return func(c *gin.Context) {
    if rl.client == nil || rl.limit <= 0 {
      c.Next()
      return
    }
    ctx := c.Request.Context()
    key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())

    pipe := rl.client.TxPipeline()
    incr := pipe.Incr(ctx, key)
    pipe.Expire(ctx, key, rl.window)
    if _, err := pipe.Exec(ctx); err != nil {
      rl.log.Warn("Rate limit check failed, allowing request", "key", key, "error", err)
      c.Next()
      return
    }
    if incr.Val() > int64(rl.limit) {
      rl.log.Warn("Rate limit exceeded", "key", key, "count", incr.Val(), "limit", rl.limit)
      c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
      return
    }
    c.Next()
  }
}
