package analytics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
)

type Service interface {
	Dashboard(ctx context.Context, doctorID uuid.UUID, r model.DateRange) (*model.DashboardStats, error)
}

type rangeQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analytics/dashboard", h.Dashboard)
}

func (h *Handler) Dashboard(c *gin.Context) {
	var q rangeQuery
	if !handler.BindQuery(c, &q) {
		return
	}

	var r model.DateRange
	if q.From != "" {
		r.From, _ = time.Parse(model.DateLayout, q.From)
	}
	if q.To != "" {
		r.To, _ = time.Parse(model.DateLayout, q.To)
	}

	stats, err := h.svc.Dashboard(c.Request.Context(), handler.UserID(c), r)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, stats)
}
