package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

// Context keys set by the auth middleware.
const (
	ContextClaims      = "claims"
	ContextUserID      = "user_id"
	ContextAccessToken = "access_token"
)

// Claims returns the token claims of an authenticated request, or nil.
func Claims(c *gin.Context) *model.TokenClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*model.TokenClaims)
	return claims
}

// UserID returns the authenticated user id. Routes behind the auth
// middleware always have one.
func UserID(c *gin.Context) uuid.UUID {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// ParamID parses a uuid path parameter. On failure it writes 400 and returns false.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		BindError(c, err)
		return false
	}
	return true
}

func BindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		BindError(c, err)
		return false
	}
	return true
}

// Attachment sets the headers of a file download.
func Attachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}
