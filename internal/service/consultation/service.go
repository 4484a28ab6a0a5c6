package consultation

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

// ObjectStore is the part of the storage service consultations need.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectPath string, content io.Reader, size int64, contentType string) (*model.StorageObject, error)
}

type Service struct {
	repo           repository.ConsultationRepository
	transcriptions repository.TranscriptionRepository
	patients       repository.PatientRepository
	appointments   repository.AppointmentRepository
	store          ObjectStore
	now            func() time.Time
}

func NewService(repo repository.ConsultationRepository, transcriptions repository.TranscriptionRepository,
	patients repository.PatientRepository, appointments repository.AppointmentRepository, store ObjectStore) *Service {
	return &Service{
		repo:           repo,
		transcriptions: transcriptions,
		patients:       patients,
		appointments:   appointments,
		store:          store,
		now:            time.Now,
	}
}

func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreateConsultationRequest) (*model.Consultation, error) {
	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, err
	}
	if patient.DoctorID != doctorID {
		return nil, apperrors.NotFound("patient", nil)
	}
	if req.AppointmentID != nil {
		a, err := s.appointments.Get(ctx, *req.AppointmentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NotFound("appointment", err)
			}
			return nil, err
		}
		if a.DoctorID != doctorID {
			return nil, apperrors.NotFound("appointment", nil)
		}
	}

	c := &model.Consultation{
		Base:           model.Base{ID: uuid.New()},
		DoctorID:       doctorID,
		PatientID:      req.PatientID,
		AppointmentID:  req.AppointmentID,
		StartedAt:      s.now(),
		ChiefComplaint: req.ChiefComplaint,
		ClinicalNotes:  req.ClinicalNotes,
		Status:         model.ConsultationStatusInProgress,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the consultation only when it belongs to doctorID.
func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*model.Consultation, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("consultation", err)
		}
		return nil, err
	}
	if c.DoctorID != doctorID {
		return nil, apperrors.NotFound("consultation", nil)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, filter *model.ConsultationFilter) ([]*model.Consultation, error) {
	return s.repo.List(ctx, filter)
}

// Update applies the non-nil fields. Completing a consultation stamps ended_at once.
func (s *Service) Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdateConsultationRequest) (*model.Consultation, error) {
	c, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	if req.ChiefComplaint != nil {
		c.ChiefComplaint = req.ChiefComplaint
	}
	if req.ClinicalNotes != nil {
		c.ClinicalNotes = req.ClinicalNotes
	}
	if req.Diagnosis != nil {
		c.Diagnosis = req.Diagnosis
	}
	if req.Prescription != nil {
		c.Prescription = req.Prescription
	}
	if req.Status != nil {
		c.Status = *req.Status
		if c.Status == model.ConsultationStatusCompleted && c.EndedAt == nil {
			now := s.now()
			c.EndedAt = &now
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) AddTranscription(ctx context.Context, doctorID, id uuid.UUID, req *model.CreateTranscriptionRequest) (*model.Transcription, error) {
	if _, err := s.Get(ctx, doctorID, id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.Validation("content is required")
	}

	now := s.now()
	t := &model.Transcription{
		ID:             uuid.New(),
		ConsultationID: id,
		Speaker:        req.Speaker,
		Content:        req.Content,
		RecordedAt:     now,
		CreatedAt:      now,
	}
	if req.RecordedAt != nil {
		t.RecordedAt = *req.RecordedAt
	}
	if err := s.transcriptions.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Transcriptions are returned in recording order.
func (s *Service) Transcriptions(ctx context.Context, doctorID, id uuid.UUID) ([]*model.Transcription, error) {
	if _, err := s.Get(ctx, doctorID, id); err != nil {
		return nil, err
	}
	return s.transcriptions.ListByConsultation(ctx, id)
}

// UploadAudio stores the recording in the audio bucket and links it to the consultation.
func (s *Service) UploadAudio(ctx context.Context, doctorID, id uuid.UUID, content io.Reader, size int64, contentType string) (*model.StorageObject, error) {
	c, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	objectPath := fmt.Sprintf("%s/%s/audio_%d%s", c.DoctorID, c.ID, s.now().UnixMilli(), audioExtension(contentType))
	obj, err := s.store.Upload(ctx, model.BucketAudioFiles, objectPath, content, size, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAudioPath(ctx, c.ID, obj.Path); err != nil {
		return nil, err
	}
	return obj, nil
}

// ExportTranscript writes the transcript as plain text into the transcriptions bucket.
func (s *Service) ExportTranscript(ctx context.Context, doctorID, id uuid.UUID) (*model.StorageObject, error) {
	fragments, err := s.Transcriptions(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, apperrors.Validation("consultation has no transcriptions")
	}

	text := RenderTranscript(fragments)
	objectPath := fmt.Sprintf("%s/transcript_%s_%d.txt", id, id, s.now().UnixMilli())
	return s.store.Upload(ctx, model.BucketTranscriptions, objectPath, strings.NewReader(text), int64(len(text)), "text/plain")
}

// RenderTranscript formats fragments as "[HH:MM:SS] Speaker: content" lines.
func RenderTranscript(fragments []*model.Transcription) string {
	var b strings.Builder
	for _, t := range fragments {
		b.WriteString("[")
		b.WriteString(t.RecordedAt.Format("15:04:05"))
		b.WriteString("] ")
		if t.Speaker != nil && *t.Speaker != "" {
			b.WriteString(*t.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func audioExtension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp4":
		return ".m4a"
	}
	return ""
}
