package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository holds auth identities. Create also inserts the profile row.
	UserRepository interface {
		Create(ctx context.Context, user *model.User, profile *model.Profile) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
		ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error
		UpdateLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	// TokenRepository stores single-use email tokens by hash.
	TokenRepository interface {
		Store(ctx context.Context, userID uuid.UUID, kind model.UserTokenKind, tokenHash string, expiresAt time.Time) error
		Consume(ctx context.Context, kind model.UserTokenKind, tokenHash string) (uuid.UUID, error)
	}

	// SessionRepository tracks live sessions so sign out can revoke tokens.
	SessionRepository interface {
		Save(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error
		Exists(ctx context.Context, sessionID uuid.UUID) (bool, error)
		Revoke(ctx context.Context, sessionID uuid.UUID) error
		RevokeAll(ctx context.Context, userID uuid.UUID) error
	}

	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
		Update(ctx context.Context, profile *model.Profile) error
		// MarkFirstLogin sets first_login_at only if it is still null and
		// reports whether this call set it.
		MarkFirstLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Archive(ctx context.Context, id uuid.UUID) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error)
		CountByStatus(ctx context.Context, doctorID uuid.UUID) ([]model.StatusCount, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Cancel(ctx context.Context, id, cancelledBy uuid.UUID, at time.Time, reason *string) error
		List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error)
		CountByStatus(ctx context.Context, doctorID uuid.UUID, r model.DateRange) ([]model.StatusCount, error)
	}

	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		Update(ctx context.Context, consultation *model.Consultation) error
		SetAudioPath(ctx context.Context, id uuid.UUID, path string) error
		List(ctx context.Context, filter *model.ConsultationFilter) ([]*model.Consultation, error)
		CountSince(ctx context.Context, doctorID uuid.UUID, since time.Time) (int, error)
	}

	TranscriptionRepository interface {
		Create(ctx context.Context, transcription *model.Transcription) error
		ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Transcription, error)
	}

	ReportRepository interface {
		Create(ctx context.Context, report *model.ConsultationReport) error
		Get(ctx context.Context, id uuid.UUID) (*model.ConsultationReport, error)
		ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.ConsultationReport, error)
		CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
	}

	// NotificationRepository writes the notification and its outbox event together.
	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
		MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
		Delete(ctx context.Context, id, userID uuid.UUID) error
		CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// Claim leases up to limit due events so concurrent workers skip them.
		Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// BucketRepository stores the policy of each storage bucket.
	BucketRepository interface {
		// Create fails with a conflict when the name is taken.
		Create(ctx context.Context, bucket *model.Bucket) error
		Upsert(ctx context.Context, bucket *model.Bucket) error
		Get(ctx context.Context, name string) (*model.Bucket, error)
		List(ctx context.Context) ([]*model.Bucket, error)
	}
)
