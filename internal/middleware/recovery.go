package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

// Recovery turns a panic into a 500 envelope and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	zl := log.Zerolog()
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				zl.Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Request panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
			}
		}()
		c.Next()
	}
}
