package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/handler"
	authHandler "github.com/jwalitptl/practice-api/internal/handler/auth"
	consultationHandler "github.com/jwalitptl/practice-api/internal/handler/consultation"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenAuth map[string]*model.TokenClaims

func (a tokenAuth) Authenticate(_ context.Context, token string) (*model.TokenClaims, error) {
	if claims, ok := a[token]; ok {
		return claims, nil
	}
	return nil, apperrors.Unauthorized("invalid token", nil)
}

// echoRoutes answers GET <path> with the caller's user id.
type echoRoutes string

func (p echoRoutes) RegisterRoutes(r *gin.RouterGroup) {
	r.GET(string(p), func(c *gin.Context) {
		c.String(http.StatusOK, handler.UserID(c).String())
	})
}

var (
	doctor  = &model.TokenClaims{UserID: uuid.New(), Role: model.RoleDoctor}
	patient = &model.TokenClaims{UserID: uuid.New(), Role: model.RolePatient}
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	engine, err := New(RouterConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		RateLimit:      100,
		RateBurst:      100,
		RequestTimeout: 5 * time.Second,
		UploadMaxBytes: 1 << 20,
		IdempotencyTTL: time.Minute,
		Location:       time.UTC,
	}, Handlers{
		Auth:         authHandler.NewHandler(struct{ authHandler.Service }{}, "https://app.example.com"),
		Profile:      echoRoutes("/profile"),
		Patient:      echoRoutes("/patients"),
		Appointment:  echoRoutes("/appointments"),
		Consultation: consultationHandler.NewHandler(struct{ consultationHandler.Service }{}),
		Report:       echoRoutes("/reports"),
		Notification: echoRoutes("/notifications"),
		Storage:      echoRoutes("/storage/buckets"),
		Analytics:    echoRoutes("/analytics/dashboard"),
		Health:       health.NewHandler(map[string]health.Pinger{}),
		Metrics:      prometheus.New(goprometheus.NewRegistry()),
	}, middleware.NewAuthMiddleware(tokenAuth{"doctor": doctor, "patient": patient}), rdb, logger.Nop())
	require.NoError(t, err)
	return engine
}

func get(engine *gin.Engine, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name   string
		target string
		token  string
		status int
	}{
		{"liveness is public", "/health/live", "", http.StatusOK},
		{"metrics are public", "/metrics", "", http.StatusOK},
		{"protected without token", "/api/v1/patients", "", http.StatusUnauthorized},
		{"protected with token", "/api/v1/patients", "doctor", http.StatusOK},
		{"query token rejected outside streams", "/api/v1/patients?access_token=doctor", "", http.StatusUnauthorized},
		{"stream without token", "/api/v1/auth/events", "", http.StatusUnauthorized},
		{"storage for doctors", "/api/v1/storage/buckets", "doctor", http.StatusOK},
		{"storage denied to patients", "/api/v1/storage/buckets", "patient", http.StatusForbidden},
		{"patients reach their profile", "/api/v1/profile", "patient", http.StatusOK},
		{"unknown route", "/api/v1/nothing", "doctor", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(engine, tt.target, tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestProtectedRoutesSeeCaller(t *testing.T) {
	engine := newEngine(t)

	w := get(engine, "/api/v1/analytics/dashboard", "doctor")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, doctor.UserID.String(), w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
}

func TestCORSPreflight(t *testing.T) {
	engine := newEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/patients", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/patients", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
