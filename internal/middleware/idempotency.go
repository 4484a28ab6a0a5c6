package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/practice-api/internal/handler"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	idempotencyPrefix = "idempotency:"
	maxKeyLength      = 128
)

// Idempotency takes a redis lock per Idempotency-Key so a resubmitted form
// is rejected with 409 while the lock lives. The lock is released when the
// request fails with a server error, letting the client retry. Requests
// without the header pass through.
func Idempotency(rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxKeyLength {
			handler.HandleError(c, apperrors.BadRequest("idempotency key too long", nil))
			return
		}

		lockKey := idempotencyPrefix + c.GetString(handler.ContextUserID) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		ok, err := rdb.SetNX(c.Request.Context(), lockKey, c.GetString(ContextRequestID), ttl).Result()
		if err != nil {
			// fail open
			log.Warn(err, "idempotency lock unavailable", "path", c.FullPath())
			c.Next()
			return
		}
		if !ok {
			handler.HandleError(c, apperrors.Conflict("duplicate request in progress", nil))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			if err := rdb.Del(context.WithoutCancel(c.Request.Context()), lockKey).Err(); err != nil {
				log.Warn(err, "failed to release idempotency lock", "key", lockKey)
			}
		}
	}
}
