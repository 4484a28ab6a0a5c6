package appointment

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
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/spreadsheet"
)

type Service interface {
	List(ctx context.Context, filter *model.AppointmentFilter) ([]model.AppointmentView, error)
	Create(ctx context.Context, doctorID uuid.UUID, req *model.CreateAppointmentRequest) (*model.AppointmentWrite, error)
	Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.AppointmentWrite, error)
	Cancel(ctx context.Context, doctorID, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.AppointmentWrite, error)
	Conflicts(ctx context.Context, doctorID uuid.UUID, q *model.ConflictQuery) ([]model.AppointmentView, error)
	Export(ctx context.Context, filter *model.AppointmentFilter, w io.Writer) error
}

type listQuery struct {
	Date   string                  `form:"date" binding:"omitempty,datetime=2006-01-02"`
	From   string                  `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string                  `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Status model.AppointmentStatus `form:"status" binding:"omitempty,oneof=agendado confirmado em_andamento concluido cancelado faltou"`
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/conflicts", h.ListConflicts)
		appointments.GET("/export", h.ExportAppointments)
		appointments.POST("", h.CreateAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
	}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	appointments, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, appointments)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, result)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), handler.UserID(c), id, &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, result)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.CancelAppointmentRequest
	if c.Request.ContentLength > 0 && !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), handler.UserID(c), id, &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, result)
}

// ListConflicts is informational; the client decides whether to go ahead.
func (h *Handler) ListConflicts(c *gin.Context) {
	var q model.ConflictQuery
	if !handler.BindQuery(c, &q) {
		return
	}
	if raw := c.Query("exclude_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.HandleError(c, apperrors.BadRequest("invalid exclude_id", err))
			return
		}
		q.ExcludeID = &id
	}

	conflicts, err := h.svc.Conflicts(c.Request.Context(), handler.UserID(c), &q)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, conflicts)
}

func (h *Handler) ExportAppointments(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), filter, &buf); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Attachment(c, fmt.Sprintf("agenda_%s.xlsx", time.Now().Format("20060102")), spreadsheet.ContentType)
	c.Data(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

func (h *Handler) filter(c *gin.Context) (*model.AppointmentFilter, bool) {
	var q listQuery
	if !handler.BindQuery(c, &q) {
		return nil, false
	}

	filter := &model.AppointmentFilter{DoctorID: handler.UserID(c), Status: q.Status}
	for _, p := range []struct {
		raw string
		dst **time.Time
	}{{q.Date, &filter.Date}, {q.From, &filter.From}, {q.To, &filter.To}} {
		if p.raw == "" {
			continue
		}
		// already validated by the binding
		d, _ := time.Parse(model.DateLayout, p.raw)
		*p.dst = &d
	}
	return filter, true
}
