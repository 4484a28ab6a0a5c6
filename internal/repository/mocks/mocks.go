// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/practice-api/internal/model"
)

type UserRepository struct{ mock.Mock }

func (m *UserRepository) Create(ctx context.Context, user *model.User, profile *model.Profile) error {
	return m.Called(ctx, user, profile).Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *UserRepository) ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *UserRepository) UpdateLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type TokenRepository struct{ mock.Mock }

func (m *TokenRepository) Store(ctx context.Context, userID uuid.UUID, kind model.UserTokenKind, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, kind, tokenHash, expiresAt).Error(0)
}

func (m *TokenRepository) Consume(ctx context.Context, kind model.UserTokenKind, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, kind, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type SessionRepository struct{ mock.Mock }

func (m *SessionRepository) Save(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error {
	return m.Called(ctx, sessionID, userID, ttl).Error(0)
}

func (m *SessionRepository) Exists(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *SessionRepository) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type ProfileRepository struct{ mock.Mock }

func (m *ProfileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *ProfileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *ProfileRepository) MarkFirstLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

type PatientRepository struct{ mock.Mock }

func (m *PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *PatientRepository) Update(ctx context.Context, patient *model.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *PatientRepository) Archive(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PatientRepository) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Patient), args.Error(1)
}

func (m *PatientRepository) CountByStatus(ctx context.Context, doctorID uuid.UUID) ([]model.StatusCount, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusCount), args.Error(1)
}

type AppointmentRepository struct{ mock.Mock }

func (m *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return m.Called(ctx, appointment).Error(0)
}

func (m *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *AppointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	return m.Called(ctx, appointment).Error(0)
}

func (m *AppointmentRepository) Cancel(ctx context.Context, id, cancelledBy uuid.UUID, at time.Time, reason *string) error {
	return m.Called(ctx, id, cancelledBy, at, reason).Error(0)
}

func (m *AppointmentRepository) List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *AppointmentRepository) CountByStatus(ctx context.Context, doctorID uuid.UUID, r model.DateRange) ([]model.StatusCount, error) {
	args := m.Called(ctx, doctorID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusCount), args.Error(1)
}

type ConsultationRepository struct{ mock.Mock }

func (m *ConsultationRepository) Create(ctx context.Context, consultation *model.Consultation) error {
	return m.Called(ctx, consultation).Error(0)
}

func (m *ConsultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

func (m *ConsultationRepository) Update(ctx context.Context, consultation *model.Consultation) error {
	return m.Called(ctx, consultation).Error(0)
}

func (m *ConsultationRepository) SetAudioPath(ctx context.Context, id uuid.UUID, path string) error {
	return m.Called(ctx, id, path).Error(0)
}

func (m *ConsultationRepository) List(ctx context.Context, filter *model.ConsultationFilter) ([]*model.Consultation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Consultation), args.Error(1)
}

func (m *ConsultationRepository) CountSince(ctx context.Context, doctorID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, doctorID, since)
	return args.Int(0), args.Error(1)
}

type TranscriptionRepository struct{ mock.Mock }

func (m *TranscriptionRepository) Create(ctx context.Context, transcription *model.Transcription) error {
	return m.Called(ctx, transcription).Error(0)
}

func (m *TranscriptionRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Transcription, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transcription), args.Error(1)
}

type ReportRepository struct{ mock.Mock }

func (m *ReportRepository) Create(ctx context.Context, report *model.ConsultationReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConsultationReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsultationReport), args.Error(1)
}

func (m *ReportRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.ConsultationReport, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ConsultationReport), args.Error(1)
}

func (m *ReportRepository) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	args := m.Called(ctx, doctorID)
	return args.Int(0), args.Error(1)
}

type NotificationRepository struct{ mock.Mock }

func (m *NotificationRepository) Create(ctx context.Context, notification *model.Notification, event *model.OutboxEvent) error {
	return m.Called(ctx, notification, event).Error(0)
}

func (m *NotificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *NotificationRepository) List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Notification), args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, userID, at).Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type OutboxRepository struct{ mock.Mock }

func (m *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *OutboxRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OutboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	return m.Called(ctx, id, errorMessage, retryAt).Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return m.Called(ctx, id, errorMessage).Error(0)
}

func (m *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
