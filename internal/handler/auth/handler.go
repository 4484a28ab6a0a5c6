package auth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const heartbeatInterval = 25 * time.Second

type Service interface {
	SignUp(ctx context.Context, req *model.SignUpRequest) (*model.User, error)
	SignInWithPassword(ctx context.Context, req *model.SignInRequest) (*model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
	SignOut(ctx context.Context, claims *model.TokenClaims) error
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	Resolve(ctx context.Context, accessToken string) (*model.AuthState, error)
	ResetPasswordForEmail(ctx context.Context, req *model.PasswordResetRequest) error
	UpdatePassword(ctx context.Context, req *model.PasswordUpdateRequest) error
	ResendConfirmation(ctx context.Context, req *model.ResendConfirmationRequest) error
	ConfirmEmail(ctx context.Context, token string) (*model.Session, error)
	SignInWithOAuth(ctx context.Context, redirectTo string) (string, error)
	ExchangeOAuthCode(ctx context.Context, code, state string) (*model.Session, string, error)
	Events(ctx context.Context, userID uuid.UUID) (<-chan []byte, error)
}

type Handler struct {
	svc       Service
	publicURL string
}

// NewHandler builds the auth handler. publicURL is the web app origin that
// browser flows return to.
func NewHandler(svc Service, publicURL string) *Handler {
	return &Handler{svc: svc, publicURL: strings.TrimRight(publicURL, "/")}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/signin", h.SignIn)
		auth.POST("/refresh", h.Refresh)
		auth.GET("/oauth/google", h.OAuthStart)
		auth.GET("/oauth/google/callback", h.OAuthCallback)
		auth.POST("/password/reset", h.ResetPassword)
		auth.POST("/password/update", h.UpdatePassword)
		auth.POST("/confirm/resend", h.ResendConfirmation)
		auth.GET("/confirm", h.Confirm)
	}
}

// RegisterProtectedRoutes mounts the routes that need a signed-in user.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/signout", h.SignOut)
		auth.GET("/session", h.Session)
		auth.GET("/user", h.User)
	}
}

// RegisterStreamRoutes mounts the long-lived event stream, which must not
// sit behind the request timeout.
func (h *Handler) RegisterStreamRoutes(r *gin.RouterGroup) {
	r.GET("/auth/events", h.Events)
}

func (h *Handler) SignUp(c *gin.Context) {
	var req model.SignUpRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.SignUp(c.Request.Context(), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, user)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req model.SignInRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	session, err := h.svc.SignInWithPassword(c.Request.Context(), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, session)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req model.RefreshTokenRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	session, err := h.svc.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, session)
}

func (h *Handler) SignOut(c *gin.Context) {
	if err := h.svc.SignOut(c.Request.Context(), handler.Claims(c)); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "signed out"})
}

// Session returns the reconciled session, user and profile.
func (h *Handler) Session(c *gin.Context) {
	state, err := h.svc.Resolve(c.Request.Context(), c.GetString(handler.ContextAccessToken))
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, state)
}

func (h *Handler) User(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), handler.UserID(c))
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, user)
}

// ResetPassword always answers 200 so the endpoint cannot be used to probe
// which emails are registered.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.PasswordResetRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if req.RedirectTo != "" {
		req.RedirectTo = h.safeRedirect(req.RedirectTo)
	}

	if err := h.svc.ResetPasswordForEmail(c.Request.Context(), &req); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "if the email is registered, a reset link has been sent"})
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	var req model.PasswordUpdateRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.UpdatePassword(c.Request.Context(), &req); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "password updated"})
}

func (h *Handler) ResendConfirmation(c *gin.Context) {
	var req model.ResendConfirmationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.ResendConfirmation(c.Request.Context(), &req); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "confirmation email sent"})
}

// Confirm is the target of the emailed link. It signs the user in and sends
// the browser back to the web app with the tokens in the fragment.
func (h *Handler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		handler.HandleError(c, apperrors.BadRequest("confirmation token is required", nil))
		return
	}

	session, err := h.svc.ConfirmEmail(c.Request.Context(), token)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, withSession(h.publicURL+"/", session))
}

func (h *Handler) OAuthStart(c *gin.Context) {
	redirectTo := h.safeRedirect(c.Query("redirect_to"))

	authURL, err := h.svc.SignInWithOAuth(c.Request.Context(), redirectTo)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) OAuthCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		handler.HandleError(c, apperrors.Unauthorized("oauth sign in cancelled: "+e, nil))
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		handler.HandleError(c, apperrors.BadRequest("missing code or state", nil))
		return
	}

	session, redirectTo, err := h.svc.ExchangeOAuthCode(c.Request.Context(), code, state)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, withSession(h.safeRedirect(redirectTo), session))
}

// Events streams auth state changes of the current user as server-sent events.
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := h.svc.Events(ctx, handler.UserID(c))
	if err != nil {
		handler.HandleError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("auth", string(msg))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			return true
		}
	})
}

// safeRedirect keeps redirects on the web app origin. Relative paths are
// joined to it; anything else falls back to its root.
func (h *Handler) safeRedirect(target string) string {
	if target == "" {
		return h.publicURL + "/"
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return h.publicURL + target
	}
	if target == h.publicURL || strings.HasPrefix(target, h.publicURL+"/") {
		return target
	}
	return h.publicURL + "/"
}

func withSession(target string, s *model.Session) string {
	fragment := url.Values{}
	fragment.Set("access_token", s.AccessToken)
	fragment.Set("refresh_token", s.RefreshToken)
	fragment.Set("expires_in", strconv.FormatInt(s.ExpiresIn, 10))
	fragment.Set("token_type", s.TokenType)
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	return target + "#" + fragment.Encode()
}
