package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Dashboard(ctx context.Context, doctorID uuid.UUID, r model.DateRange) (*model.DashboardStats, error) {
	args := m.Called(ctx, doctorID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardStats), args.Error(1)
}

var doctorID = uuid.MustParse("22222222-2222-2222-2222-222222222222")

func serve(svc *mockService, target string) *httptest.ResponseRecorder {
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(handler.ContextClaims, &model.TokenClaims{UserID: doctorID, Role: model.RoleDoctor})
	})
	NewHandler(svc).RegisterRoutes(api)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestDashboardRange(t *testing.T) {
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query string
		want  model.DateRange
	}{
		{"default range", "", model.DateRange{}},
		{"both bounds", "?from=2024-07-01&to=2024-07-31", model.DateRange{From: from, To: to}},
		{"open end", "?from=2024-07-01", model.DateRange{From: from}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("Dashboard", mock.Anything, doctorID, tt.want).
				Return(&model.DashboardStats{DoctorID: doctorID, ReportsGenerated: 3}, nil)

			w := serve(svc, "/api/v1/analytics/dashboard"+tt.query)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"reports_generated":3`)
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardBadDate(t *testing.T) {
	svc := &mockService{}

	w := serve(svc, "/api/v1/analytics/dashboard?from=01/07/2024")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything, mock.Anything)
}
