package storage

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type Service interface {
	CreateBucket(ctx context.Context, policy model.BucketPolicy) (*model.Bucket, error)
	ListBuckets(ctx context.Context) ([]*model.Bucket, error)
	List(ctx context.Context, bucket, prefix string) ([]model.StorageObject, error)
	Remove(ctx context.Context, bucket string, paths ...string) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	storage := r.Group("/storage")
	{
		storage.GET("/buckets", h.ListBuckets)
		storage.POST("/buckets", h.CreateBucket)
		storage.GET("/:bucket/objects", h.ListObjects)
		storage.DELETE("/:bucket/objects/*path", h.RemoveObject)
	}
}

func (h *Handler) ListBuckets(c *gin.Context) {
	buckets, err := h.svc.ListBuckets(c.Request.Context())
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, buckets)
}

func (h *Handler) CreateBucket(c *gin.Context) {
	var policy model.BucketPolicy
	if !handler.BindJSON(c, &policy) {
		return
	}

	bucket, err := h.svc.CreateBucket(c.Request.Context(), policy)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, bucket)
}

// ListObjects lists the caller's own objects. Every path is confined to the
// "<user id>/" prefix; the prefix query narrows it further.
func (h *Handler) ListObjects(c *gin.Context) {
	prefix, err := h.ownPath(c, c.Query("prefix"))
	if err != nil {
		handler.HandleError(c, err)
		return
	}

	objects, err := h.svc.List(c.Request.Context(), c.Param("bucket"), prefix)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, objects)
}

func (h *Handler) RemoveObject(c *gin.Context) {
	objectPath, err := h.ownPath(c, c.Param("path"))
	if err != nil {
		handler.HandleError(c, err)
		return
	}

	if err := h.svc.Remove(c.Request.Context(), c.Param("bucket"), objectPath); err != nil {
		handler.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownPath resolves p under the caller's prefix and rejects attempts to leave it.
func (h *Handler) ownPath(c *gin.Context, p string) (string, error) {
	root := handler.UserID(c).String() + "/"
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return root, nil
	}
	if !strings.HasPrefix(p, root) {
		p = root + p
	}
	cleaned := path.Clean(p)
	if cleaned+"/" == root {
		return root, nil
	}
	if !strings.HasPrefix(cleaned, root) {
		return "", apperrors.Forbidden("path outside of your storage area")
	}
	if strings.HasSuffix(p, "/") {
		cleaned += "/"
	}
	return cleaned, nil
}
