package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Generate(ctx context.Context, doctorID, consultationID uuid.UUID) (*model.ConsultationReport, error) {
	args := m.Called(ctx, doctorID, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsultationReport), args.Error(1)
}

func (m *mockService) List(ctx context.Context, doctorID, consultationID uuid.UUID) ([]*model.ConsultationReport, error) {
	args := m.Called(ctx, doctorID, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ConsultationReport), args.Error(1)
}

func (m *mockService) Download(ctx context.Context, doctorID, reportID uuid.UUID) (io.ReadCloser, *model.ConsultationReport, error) {
	args := m.Called(ctx, doctorID, reportID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.ConsultationReport), args.Error(2)
}

var doctorID = uuid.MustParse("22222222-2222-2222-2222-222222222222")

func setup() (*gin.Engine, *mockService) {
	svc := &mockService{}
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(handler.ContextClaims, &model.TokenClaims{UserID: doctorID, Role: model.RoleDoctor})
	})
	NewHandler(svc).RegisterRoutes(api)
	return r, svc
}

func do(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestGenerateReport(t *testing.T) {
	r, svc := setup()
	consultationID := uuid.New()
	report := &model.ConsultationReport{ID: uuid.New(), ConsultationID: consultationID, PageCount: 2}
	svc.On("Generate", mock.Anything, doctorID, consultationID).Return(report, nil)

	w := do(r, http.MethodPost, "/api/v1/consultations/"+consultationID.String()+"/reports")

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data model.ConsultationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, report.ID, resp.Data.ID)
	assert.Equal(t, 2, resp.Data.PageCount)
}

func TestGenerateReportConsultationMissing(t *testing.T) {
	r, svc := setup()
	consultationID := uuid.New()
	svc.On("Generate", mock.Anything, doctorID, consultationID).
		Return(nil, apperrors.NotFound("consultation", apperrors.ErrRecordNotFound))

	w := do(r, http.MethodPost, "/api/v1/consultations/"+consultationID.String()+"/reports")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReportsBadID(t *testing.T) {
	r, svc := setup()

	w := do(r, http.MethodGet, "/api/v1/consultations/abc/reports")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestDownloadReport(t *testing.T) {
	r, svc := setup()
	reportID := uuid.New()
	body := "%PDF-1.3 test"
	report := &model.ConsultationReport{
		ID:          reportID,
		FileName:    "relatorio.pdf",
		FileSize:    int64(len(body)),
		ContentType: "application/pdf",
		PageCount:   3,
	}
	svc.On("Download", mock.Anything, doctorID, reportID).
		Return(io.NopCloser(strings.NewReader(body)), report, nil)

	w := do(r, http.MethodGet, "/api/v1/reports/"+reportID.String()+"/download")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="relatorio.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", w.Header().Get("X-Page-Count"))
	assert.Equal(t, body, w.Body.String())
}

func TestDownloadReportForbidden(t *testing.T) {
	r, svc := setup()
	reportID := uuid.New()
	svc.On("Download", mock.Anything, doctorID, reportID).
		Return(nil, nil, apperrors.Forbidden("report belongs to another doctor"))

	w := do(r, http.MethodGet, "/api/v1/reports/"+reportID.String()+"/download")

	assert.Equal(t, http.StatusForbidden, w.Code)
}
