package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
)

type Service interface {
	List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	var filter model.NotificationFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	filter.UserID = handler.UserID(c)

	list, err := h.svc.List(c.Request.Context(), &filter)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, list)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), handler.UserID(c))
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, model.UnreadCount{Count: n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id, handler.UserID(c)); err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"id": id, "status": model.NotificationStatusRead})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), handler.UserID(c))
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, gin.H{"updated": n})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, handler.UserID(c)); err != nil {
		handler.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
