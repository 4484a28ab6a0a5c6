package consultation

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const audioFormField = "file"

type Service interface {
	Create(ctx context.Context, doctorID uuid.UUID, req *model.CreateConsultationRequest) (*model.Consultation, error)
	Get(ctx context.Context, doctorID, id uuid.UUID) (*model.Consultation, error)
	List(ctx context.Context, filter *model.ConsultationFilter) ([]*model.Consultation, error)
	Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdateConsultationRequest) (*model.Consultation, error)
	AddTranscription(ctx context.Context, doctorID, id uuid.UUID, req *model.CreateTranscriptionRequest) (*model.Transcription, error)
	Transcriptions(ctx context.Context, doctorID, id uuid.UUID) ([]*model.Transcription, error)
	UploadAudio(ctx context.Context, doctorID, id uuid.UUID, content io.Reader, size int64, contentType string) (*model.StorageObject, error)
	ExportTranscript(ctx context.Context, doctorID, id uuid.UUID) (*model.StorageObject, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", h.CreateConsultation)
		consultations.GET("", h.ListConsultations)
		consultations.GET("/:id", h.GetConsultation)
		consultations.PUT("/:id", h.UpdateConsultation)
		consultations.POST("/:id/transcriptions", h.AddTranscription)
		consultations.GET("/:id/transcriptions", h.ListTranscriptions)
		consultations.POST("/:id/transcript/export", h.ExportTranscript)
	}
}

// RegisterUploadRoutes mounts the audio upload on a group with a larger body limit.
func (h *Handler) RegisterUploadRoutes(r *gin.RouterGroup) {
	r.POST("/consultations/:id/audio", h.UploadAudio)
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	var req model.CreateConsultationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	consultation, err := h.svc.Create(c.Request.Context(), handler.UserID(c), &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, consultation)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	consultation, err := h.svc.Get(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, consultation)
}

func (h *Handler) ListConsultations(c *gin.Context) {
	filter := model.ConsultationFilter{DoctorID: handler.UserID(c)}
	if raw := c.Query("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			handler.HandleError(c, apperrors.BadRequest("invalid patient_id", err))
			return
		}
		filter.PatientID = &patientID
	}

	consultations, err := h.svc.List(c.Request.Context(), &filter)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, consultations)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateConsultationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	consultation, err := h.svc.Update(c.Request.Context(), handler.UserID(c), id, &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, consultation)
}

func (h *Handler) AddTranscription(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.CreateTranscriptionRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.svc.AddTranscription(c.Request.Context(), handler.UserID(c), id, &req)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, t)
}

func (h *Handler) ListTranscriptions(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	list, err := h.svc.Transcriptions(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.OK(c, list)
}

// UploadAudio takes a multipart form with the recording in the "file" field.
// The bucket policy decides whether its type and size are accepted.
func (h *Handler) UploadAudio(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	fh, err := c.FormFile(audioFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, handler.NewErrorResponse("audio file too large"))
			return
		}
		handler.HandleError(c, apperrors.BadRequest("audio file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		handler.HandleError(c, apperrors.BadRequest("failed to read audio file", err))
		return
	}
	defer f.Close()

	obj, err := h.svc.UploadAudio(c.Request.Context(), handler.UserID(c), id, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, obj)
}

func (h *Handler) ExportTranscript(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	obj, err := h.svc.ExportTranscript(c.Request.Context(), handler.UserID(c), id)
	if err != nil {
		handler.HandleError(c, err)
		return
	}
	handler.Created(c, obj)
}
