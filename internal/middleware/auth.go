package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

// Authenticator validates an access token against the live sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.TokenClaims, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate verifies the bearer token and stores its claims in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return m.authenticate(false)
}

// AuthenticateStream is Authenticate for event streams. EventSource clients
// cannot set headers, so the access_token query parameter is accepted when no
// Authorization header is present. Mount it on stream routes only.
func (m *AuthMiddleware) AuthenticateStream() gin.HandlerFunc {
	return m.authenticate(true)
}

func (m *AuthMiddleware) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c, allowQuery)
		if err != nil {
			handler.HandleError(c, err)
			return
		}

		claims, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			handler.HandleError(c, err)
			return
		}

		c.Set(handler.ContextClaims, claims)
		c.Set(handler.ContextAccessToken, token)
		c.Set(handler.ContextUserID, claims.UserID.String())
		c.Next()
	}
}

// RequireRole rejects authenticated users whose token carries another role.
func (m *AuthMiddleware) RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := handler.Claims(c)
		if claims == nil || claims.Role != role {
			handler.HandleError(c, apperrors.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("access_token"); allowQuery && token != "" {
			return token, nil
		}
		return "", apperrors.Unauthorized("missing authorization header", nil)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.Unauthorized("invalid authorization format", nil)
	}
	return parts[1], nil
}
