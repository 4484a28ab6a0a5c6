package patient

import (
	"context"
	"encoding/json"
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
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/spreadsheet"
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

func (m *mockService) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error) {
	args := m.Called(ctx, doctorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *mockService) Get(ctx context.Context, doctorID, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, doctorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *mockService) Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	args := m.Called(ctx, doctorID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *mockService) Archive(ctx context.Context, doctorID, id uuid.UUID) error {
	return m.Called(ctx, doctorID, id).Error(0)
}

func (m *mockService) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	return m.Called(ctx, doctorID, id).Error(0)
}

func (m *mockService) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Patient), args.Error(1)
}

func (m *mockService) Export(ctx context.Context, filter *model.PatientFilter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	if args.Error(0) == nil {
		_, _ = w.Write([]byte("xlsx"))
	}
	return args.Error(0)
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

func TestCreatePatient(t *testing.T) {
	r, svc := setup()
	created := &model.Patient{Base: model.Base{ID: uuid.New()}, DoctorID: doctorID, FullName: "Maria Souza"}
	svc.On("Create", mock.Anything, doctorID, mock.MatchedBy(func(req *model.CreatePatientRequest) bool {
		return req.FullName == "Maria Souza" && req.Gender == "feminino"
	})).Return(created, nil)

	w := do(r, http.MethodPost, "/api/v1/patients",
		`{"full_name":"Maria Souza","birth_date":"1990-04-12","gender":"feminino","phone":"(11) 98765-4321"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Status string        `json:"status"`
		Data   model.Patient `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, created.ID, resp.Data.ID)
	svc.AssertExpectations(t)
}

func TestCreatePatientValidation(t *testing.T) {
	r, svc := setup()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"birth_date":"1990-04-12","gender":"feminino"}`, "full_name"},
		{"padded one-letter name", `{"full_name":"  a  ","birth_date":"1990-04-12","gender":"feminino"}`, "full_name"},
		{"future birth date", `{"full_name":"Maria","birth_date":"2999-01-01","gender":"feminino"}`, "birth_date"},
		{"bad gender", `{"full_name":"Maria","birth_date":"1990-04-12","gender":"x"}`, "gender"},
		{"bad phone", `{"full_name":"Maria","birth_date":"1990-04-12","gender":"outro","phone":"12"}`, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/patients", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"field":"`+tt.field+`"`)
		})
	}
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetPatientNotFound(t *testing.T) {
	r, svc := setup()
	id := uuid.New()
	svc.On("Get", mock.Anything, doctorID, id).Return(nil, apperrors.NotFound("patient", nil))

	w := do(r, http.MethodGet, "/api/v1/patients/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/patients/nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPatientsScopesToDoctor(t *testing.T) {
	r, svc := setup()
	svc.On("List", mock.Anything, &model.PatientFilter{DoctorID: doctorID, Search: "ana", Status: model.PatientStatusActive}).
		Return([]*model.Patient{}, nil)

	w := do(r, http.MethodGet, "/api/v1/patients?search=ana&status=active", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/patients?status=deleted", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestArchiveAndDeletePatient(t *testing.T) {
	r, svc := setup()
	id := uuid.New()
	svc.On("Archive", mock.Anything, doctorID, id).Return(nil)
	svc.On("Delete", mock.Anything, doctorID, id).Return(nil)

	w := do(r, http.MethodPost, "/api/v1/patients/"+id.String()+"/archive", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"archived"`)

	w = do(r, http.MethodDelete, "/api/v1/patients/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestExportPatients(t *testing.T) {
	r, svc := setup()
	svc.On("Export", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := do(r, http.MethodGet, "/api/v1/patients/export", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, spreadsheet.ContentType, w.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="?pacientes_\d{8}\.xlsx"?`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestExportPatientsFailureIsJSON(t *testing.T) {
	r, svc := setup()
	svc.On("Export", mock.Anything, mock.Anything, mock.Anything).Return(apperrors.Internal("export failed", nil))

	w := do(r, http.MethodGet, "/api/v1/patients/export", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "export failed")
}
