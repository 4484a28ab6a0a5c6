package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const contentTypePDF = "application/pdf"

// User-facing failures. Causes are logged, not returned.
var (
	ErrGenerate = errors.New("failed to generate report")
	ErrSave     = errors.New("failed to save report")
	ErrDownload = errors.New("failed to download report")
)

type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectPath string, content io.Reader, size int64, contentType string) (*model.StorageObject, error)
	Download(ctx context.Context, bucket, objectPath string) (io.ReadCloser, *model.StorageObject, error)
}

type Service struct {
	consultations  repository.ConsultationRepository
	patients       repository.PatientRepository
	transcriptions repository.TranscriptionRepository
	profiles       repository.ProfileRepository
	reports        repository.ReportRepository
	store          ObjectStore
	metrics        *metrics.Metrics
	logger         *logger.Logger
	loc            *time.Location
	now            func() time.Time
}

type Dependencies struct {
	Consultations  repository.ConsultationRepository
	Patients       repository.PatientRepository
	Transcriptions repository.TranscriptionRepository
	Profiles       repository.ProfileRepository
	Reports        repository.ReportRepository
	Store          ObjectStore
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	Location       *time.Location
}

func NewService(deps Dependencies) *Service {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		consultations:  deps.Consultations,
		patients:       deps.Patients,
		transcriptions: deps.Transcriptions,
		profiles:       deps.Profiles,
		reports:        deps.Reports,
		store:          deps.Store,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		loc:            loc,
		now:            time.Now,
	}
}

// Generate renders the consultation report, uploads it under a timestamped
// name and records it. Every call produces a new object. An upload that
// succeeded before a failed insert is left in place.
func (s *Service) Generate(ctx context.Context, doctorID, consultationID uuid.UUID) (*model.ConsultationReport, error) {
	report, err := s.generate(ctx, doctorID, consultationID)
	s.metrics.ReportsGenerated.WithLabelValues(metrics.Status(err)).Inc()
	return report, err
}

func (s *Service) generate(ctx context.Context, doctorID, consultationID uuid.UUID) (*model.ConsultationReport, error) {
	fail := func(public error, cause error, step string) error {
		s.logger.Error(cause, "report "+step+" failed", "consultation_id", consultationID)
		return apperrors.Internal(public.Error(), fmt.Errorf("%w: %v", public, cause))
	}

	c, err := s.consultations.Get(ctx, consultationID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("consultation", err)
		}
		return nil, fail(ErrGenerate, err, "consultation read")
	}
	if c.DoctorID != doctorID {
		return nil, apperrors.NotFound("consultation", nil)
	}

	patient, err := s.patients.Get(ctx, c.PatientID)
	if err != nil {
		return nil, fail(ErrGenerate, err, "patient read")
	}

	fragments, err := s.transcriptions.ListByConsultation(ctx, c.ID)
	if err != nil {
		return nil, fail(ErrGenerate, err, "transcriptions read")
	}

	doctor, err := s.profiles.Get(ctx, doctorID)
	if err != nil {
		// the header just omits the doctor line
		s.logger.Warn(err, "doctor profile unavailable for report", "doctor_id", doctorID)
	}

	generatedAt := s.now()
	data, pages, err := Render(&Document{
		Consultation:   c,
		Patient:        patient,
		Doctor:         doctor,
		Transcriptions: fragments,
		GeneratedAt:    generatedAt,
		Location:       s.loc,
	})
	if err != nil {
		return nil, fail(ErrGenerate, err, "render")
	}

	fileName := fmt.Sprintf("report_%s_%d.pdf", c.ID, generatedAt.UnixMilli())
	objectPath := c.ID.String() + "/" + fileName
	obj, err := s.store.Upload(ctx, model.BucketReports, objectPath, bytes.NewReader(data), int64(len(data)), contentTypePDF)
	if err != nil {
		return nil, fail(ErrSave, err, "upload")
	}

	report := &model.ConsultationReport{
		ID:             uuid.New(),
		ConsultationID: c.ID,
		DoctorID:       doctorID,
		Bucket:         model.BucketReports,
		FilePath:       obj.Path,
		FileName:       fileName,
		FileSize:       int64(len(data)),
		ContentType:    contentTypePDF,
		PageCount:      pages,
		GeneratedAt:    generatedAt,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fail(ErrSave, err, "insert")
	}

	s.logger.Info("report generated", "consultation_id", c.ID, "path", obj.Path, "pages", pages)
	return report, nil
}

func (s *Service) List(ctx context.Context, doctorID, consultationID uuid.UUID) ([]*model.ConsultationReport, error) {
	c, err := s.consultations.Get(ctx, consultationID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("consultation", err)
		}
		return nil, err
	}
	if c.DoctorID != doctorID {
		return nil, apperrors.NotFound("consultation", nil)
	}
	return s.reports.ListByConsultation(ctx, consultationID)
}

// Download returns the stored PDF. The caller closes the reader.
func (s *Service) Download(ctx context.Context, doctorID, reportID uuid.UUID) (io.ReadCloser, *model.ConsultationReport, error) {
	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NotFound("report", err)
		}
		s.logger.Error(err, "report lookup failed", "report_id", reportID)
		return nil, nil, apperrors.Internal(ErrDownload.Error(), err)
	}
	if report.DoctorID != doctorID {
		return nil, nil, apperrors.NotFound("report", nil)
	}

	rc, _, err := s.store.Download(ctx, report.Bucket, report.FilePath)
	if err != nil {
		s.logger.Error(err, "report download failed", "report_id", reportID, "path", report.FilePath)
		return nil, nil, apperrors.Internal(ErrDownload.Error(), fmt.Errorf("%w: %v", ErrDownload, err))
	}
	return rc, report, nil
}
