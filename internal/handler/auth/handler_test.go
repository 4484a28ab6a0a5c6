package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubService answers every call with the configured values.
type stubService struct {
	session    *model.Session
	redirectTo string
	err        error
	resetReq   *model.PasswordResetRequest
	events     chan []byte
}

func (s *stubService) SignUp(context.Context, *model.SignUpRequest) (*model.User, error) {
	return &model.User{}, s.err
}

func (s *stubService) SignInWithPassword(context.Context, *model.SignInRequest) (*model.Session, error) {
	return s.session, s.err
}

func (s *stubService) RefreshSession(context.Context, string) (*model.Session, error) {
	return s.session, s.err
}

func (s *stubService) SignOut(context.Context, *model.TokenClaims) error { return s.err }

func (s *stubService) GetUser(context.Context, uuid.UUID) (*model.User, error) {
	return &model.User{}, s.err
}

func (s *stubService) Resolve(context.Context, string) (*model.AuthState, error) {
	return &model.AuthState{}, s.err
}

func (s *stubService) ResetPasswordForEmail(_ context.Context, req *model.PasswordResetRequest) error {
	s.resetReq = req
	return s.err
}

func (s *stubService) UpdatePassword(context.Context, *model.PasswordUpdateRequest) error { return s.err }

func (s *stubService) ResendConfirmation(context.Context, *model.ResendConfirmationRequest) error {
	return s.err
}

func (s *stubService) ConfirmEmail(context.Context, string) (*model.Session, error) {
	return s.session, s.err
}

func (s *stubService) SignInWithOAuth(_ context.Context, redirectTo string) (string, error) {
	return "https://accounts.google.com/o/oauth2/auth?redirect=" + url.QueryEscape(redirectTo), s.err
}

func (s *stubService) ExchangeOAuthCode(context.Context, string, string) (*model.Session, string, error) {
	return s.session, s.redirectTo, s.err
}

func (s *stubService) Events(context.Context, uuid.UUID) (<-chan []byte, error) {
	return s.events, s.err
}

const publicURL = "https://app.example.com"

func testSession() *model.Session {
	return &model.Session{AccessToken: "at", RefreshToken: "rt", TokenType: "bearer", ExpiresIn: 3600}
}

func setup(svc *stubService) *gin.Engine {
	r := gin.New()
	h := NewHandler(svc, publicURL+"/")
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)

	protected := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(handler.ContextClaims, &model.TokenClaims{UserID: uuid.New()})
	})
	h.RegisterStreamRoutes(protected)
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestSafeRedirect(t *testing.T) {
	h := NewHandler(nil, publicURL)
	tests := []struct {
		in   string
		want string
	}{
		{"", publicURL + "/"},
		{"/dashboard", publicURL + "/dashboard"},
		{publicURL, publicURL},
		{publicURL + "/reset", publicURL + "/reset"},
		{"//evil.com/x", publicURL + "/"},
		{"https://evil.com", publicURL + "/"},
		{publicURL + ".evil.com/x", publicURL + "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.safeRedirect(tt.in), tt.in)
	}
}

func TestConfirmRedirectsWithSessionFragment(t *testing.T) {
	r := setup(&stubService{session: testSession()})

	w := get(r, "/api/v1/auth/confirm?token=abc")
	require.Equal(t, http.StatusSeeOther, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", loc.Host)
	fragment, err := url.ParseQuery(loc.Fragment)
	require.NoError(t, err)
	assert.Equal(t, "at", fragment.Get("access_token"))
	assert.Equal(t, "rt", fragment.Get("refresh_token"))
	assert.Equal(t, "3600", fragment.Get("expires_in"))

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/auth/confirm").Code)
}

func TestConfirmExpiredToken(t *testing.T) {
	r := setup(&stubService{err: apperrors.Unauthorized("confirmation link expired", nil)})

	w := get(r, "/api/v1/auth/confirm?token=old")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "confirmation link expired")
}

func TestOAuthCallback(t *testing.T) {
	r := setup(&stubService{session: testSession(), redirectTo: "https://evil.com/steal"})

	w := get(r, "/api/v1/auth/oauth/google/callback?code=c&state=s")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), publicURL+"/#"))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/auth/oauth/google/callback?error=access_denied").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/auth/oauth/google/callback?code=c").Code)
}

func TestOAuthStartConfinesRedirect(t *testing.T) {
	r := setup(&stubService{})

	w := get(r, "/api/v1/auth/oauth/google?redirect_to=https://evil.com")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), url.QueryEscape(publicURL+"/"))
}

func TestResetPasswordConfinesRedirect(t *testing.T) {
	svc := &stubService{}
	r := setup(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password/reset",
		strings.NewReader(`{"email":"ana@example.com","redirect_to":"/nova-senha"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.resetReq)
	assert.Equal(t, publicURL+"/nova-senha", svc.resetReq.RedirectTo)
}

// gin's Stream needs a http.CloseNotifier.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool { return r.closed }

func TestEventsStreamsUntilClosed(t *testing.T) {
	events := make(chan []byte, 2)
	events <- []byte(`{"event":"SIGNED_IN"}`)
	events <- []byte(`{"event":"SIGNED_OUT"}`)
	close(events)
	r := setup(&stubService{events: events})

	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/events", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event:auth")
	assert.Contains(t, body, "SIGNED_IN")
	assert.Contains(t, body, "SIGNED_OUT")
}
