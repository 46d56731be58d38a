package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/use-agent/omniscrape/config"
	"github.com/use-agent/omniscrape/models"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an identity's bucket survives without requests.
const limiterIdle = time.Hour

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate. Buckets idle for an hour
// are dropped.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := gocache.New(limiterIdle, 5*time.Minute)
	var mu sync.Mutex

	getLimiter := func(identity string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		var l *rate.Limiter
		if v, ok := limiters.Get(identity); ok {
			l = v.(*rate.Limiter)
		} else {
			l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		}
		// Refresh the expiry on every request.
		limiters.SetDefault(identity, l)
		return l
	}

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !getLimiter(identity).Allow() {
			retry := int(math.Ceil(1 / cfg.RequestsPerSecond))
			c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
