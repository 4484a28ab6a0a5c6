package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const hstsMaxAge = 31536000

// SecurityHeaders sets the response headers of a JSON API serving patient
// data. Responses are never cached. HSTS is only sent when tls is set.
func SecurityHeaders(tls bool) gin.HandlerFunc {
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains", hstsMaxAge)
	return func(c *gin.Context) {
		if tls {
			c.Header("Strict-Transport-Security", hsts)
		}
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
