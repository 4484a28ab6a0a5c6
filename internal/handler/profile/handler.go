package profile

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
)

type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.Profile, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, req *model.UpdatePreferencesRequest) (*model.Profile, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	profile := r.Group("/profile")
	{
		profile.GET("", h.Get)
		profile.PUT("", h.Update)
		profile.PUT("/preferences", h.UpdatePreferences)
	}
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), handler.UserID(c))
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, p)
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateProfileRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.svc.Update(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, p)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req model.UpdatePreferencesRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.svc.UpdatePreferences(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, p)
}
