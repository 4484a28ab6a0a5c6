package profile

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	appvalidator "github.com/jwalitptl/practice-api/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := appvalidator.Register(v); err != nil {
			panic(err)
		}
	}
}

type mockService struct {
	mock.Mock
}

func (m *mockService) profile(args mock.Arguments) (*model.Profile, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *mockService) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	return m.profile(m.Called(ctx, userID))
}

func (m *mockService) Update(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.Profile, error) {
	return m.profile(m.Called(ctx, userID, req))
}

func (m *mockService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *model.UpdatePreferencesRequest) (*model.Profile, error) {
	return m.profile(m.Called(ctx, userID, req))
}

var userID = uuid.MustParse("44444444-4444-4444-4444-444444444444")

func setup() (*gin.Engine, *mockService) {
	svc := &mockService{}
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(handler.ContextClaims, &model.TokenClaims{UserID: userID, Role: model.RoleDoctor})
	})
	NewHandler(svc).RegisterRoutes(api)
	return r, svc
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetProfile(t *testing.T) {
	r, svc := setup()
	svc.On("Get", mock.Anything, userID).Return(&model.Profile{ID: userID, FullName: "Ana Lima", Role: model.RoleDoctor}, nil)

	w := do(r, http.MethodGet, "/api/v1/profile", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana Lima")
}

func TestGetProfileMissing(t *testing.T) {
	r, svc := setup()
	svc.On("Get", mock.Anything, userID).Return(nil, apperrors.NotFound("profile", nil))

	w := do(r, http.MethodGet, "/api/v1/profile", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfileValidation(t *testing.T) {
	r, svc := setup()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"padded one-letter name", `{"full_name":" a "}`, "full_name"},
		{"bad phone", `{"phone":"123"}`, "phone"},
		{"long crm", `{"crm":"` + strings.Repeat("9", 21) + `"}`, "crm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPut, "/api/v1/profile", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"field":"`+tt.field+`"`)
		})
	}
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfile(t *testing.T) {
	r, svc := setup()
	svc.On("Update", mock.Anything, userID, mock.MatchedBy(func(req *model.UpdateProfileRequest) bool {
		return req.FullName != nil && *req.FullName == "Ana Lima" && req.CRM == nil
	})).Return(&model.Profile{ID: userID, FullName: "Ana Lima"}, nil)

	w := do(r, http.MethodPut, "/api/v1/profile", `{"full_name":"Ana Lima"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUpdatePreferences(t *testing.T) {
	r, svc := setup()
	dark := model.ThemeDark
	svc.On("UpdatePreferences", mock.Anything, userID, mock.MatchedBy(func(req *model.UpdatePreferencesRequest) bool {
		return req.ThemePreference != nil && *req.ThemePreference == dark && req.CompactMode != nil && *req.CompactMode
	})).Return(&model.Profile{ID: userID, ThemePreference: dark}, nil)

	w := do(r, http.MethodPut, "/api/v1/profile/preferences", `{"theme_preference":"dark","compact_mode":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPut, "/api/v1/profile/preferences", `{"theme_preference":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "UpdatePreferences", 1)
}
