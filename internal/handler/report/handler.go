package report

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
)

type Service interface {
	Generate(ctx context.Context, doctorID, consultationID uuid.UUID) (*model.ConsultationReport, error)
	List(ctx context.Context, doctorID, consultationID uuid.UUID) ([]*model.ConsultationReport, error)
	Download(ctx context.Context, doctorID, reportID uuid.UUID) (io.ReadCloser, *model.ConsultationReport, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/consultations/:id/reports", h.GenerateReport)
	r.GET("/consultations/:id/reports", h.ListReports)
	r.GET("/reports/:id/download", h.DownloadReport)
}

func (h *Handler) GenerateReport(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	report, err := h.svc.Generate(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, report)
}

func (h *Handler) ListReports(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	reports, err := h.svc.List(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, reports)
}

func (h *Handler) DownloadReport(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	rc, report, err := h.svc.Download(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, report.FileSize, report.ContentType, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + report.FileName + `"`,
		"X-Page-Count":        strconv.Itoa(report.PageCount),
	})
}
