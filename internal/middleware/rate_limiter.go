package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/practice-api/internal/handler"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// Idle limiters are dropped after this long.
	Expiry time.Duration
}

// RateLimiter keeps one token bucket per client, keyed by user id when
// authenticated and by IP otherwise.
type RateLimiter struct {
	cfg      RateLimiterConfig
	mu       sync.Mutex
	limiters *cache.Cache
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 10 * time.Minute
	}
	return &RateLimiter{
		cfg:      cfg,
		limiters: cache.New(cfg.Expiry, cfg.Expiry),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.limiters.Set(key, l, cache.DefaultExpiration)
		return l
	}
	l := rate.NewLimiter(rl.cfg.Rate, rl.cfg.Burst)
	rl.limiters.Set(key, l, cache.DefaultExpiration)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(handler.ContextUserID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !rl.limiter(key).Allow() {
			handler.HandleError(c, apperrors.TooManyRequests("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
