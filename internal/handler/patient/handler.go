package patient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/spreadsheet"
)

type Service interface {
	Create(ctx context.Context, doctorID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, doctorID, id uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	Archive(ctx context.Context, doctorID, id uuid.UUID) error
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error)
	Export(ctx context.Context, filter *model.PatientFilter, w io.Writer) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/export", h.ExportPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.POST("/:id/archive", h.ArchivePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	patient, err := h.svc.Create(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, patient)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	patient, err := h.svc.Get(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filter model.PatientFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	filter.DoctorID = handler.UserID(c)

	patients, err := h.svc.List(c.Request.Context(), &filter)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, patients)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	patient, err := h.svc.Update(c.Request.Context(), handler.UserID(c), id, &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) ArchivePatient(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Archive(c.Request.Context(), handler.UserID(c), id); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"id": id, "status": model.PatientStatusArchived})
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), handler.UserID(c), id); err != nil {
		handler.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportPatients renders the filtered list as an XLSX workbook. The sheet is
// built in memory so a failure still gets a JSON error.
func (h *Handler) ExportPatients(c *gin.Context) {
	var filter model.PatientFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	filter.DoctorID = handler.UserID(c)

	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), &filter, &buf); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Attachment(c, fmt.Sprintf("pacientes_%s.xlsx", time.Now().Format("20060102")), spreadsheet.ContentType)
	c.Data(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}
