package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusInProgress ConsultationStatus = "in_progress"
	ConsultationStatusCompleted  ConsultationStatus = "completed"
)

type Consultation struct {
	Base
	DoctorID       uuid.UUID          `json:"doctor_id" db:"doctor_id"`
	PatientID      uuid.UUID          `json:"patient_id" db:"patient_id"`
	AppointmentID  *uuid.UUID         `json:"appointment_id,omitempty" db:"appointment_id"`
	StartedAt      time.Time          `json:"started_at" db:"started_at"`
	EndedAt        *time.Time         `json:"ended_at,omitempty" db:"ended_at"`
	ChiefComplaint *string            `json:"chief_complaint,omitempty" db:"chief_complaint"`
	ClinicalNotes  *string            `json:"clinical_notes,omitempty" db:"clinical_notes"`
	Diagnosis      *string            `json:"diagnosis,omitempty" db:"diagnosis"`
	Prescription   *string            `json:"prescription,omitempty" db:"prescription"`
	AudioPath      *string            `json:"audio_path,omitempty" db:"audio_path"`
	Status         ConsultationStatus `json:"status" db:"status"`
}

type CreateConsultationRequest struct {
	PatientID      uuid.UUID  `json:"patient_id" binding:"required"`
	AppointmentID  *uuid.UUID `json:"appointment_id"`
	ChiefComplaint *string    `json:"chief_complaint"`
	ClinicalNotes  *string    `json:"clinical_notes"`
}

type UpdateConsultationRequest struct {
	ChiefComplaint *string             `json:"chief_complaint"`
	ClinicalNotes  *string             `json:"clinical_notes"`
	Diagnosis      *string             `json:"diagnosis"`
	Prescription   *string             `json:"prescription"`
	Status         *ConsultationStatus `json:"status" binding:"omitempty,oneof=in_progress completed"`
}

type ConsultationFilter struct {
	DoctorID  uuid.UUID
	PatientID *uuid.UUID `form:"patient_id"`
}

// Transcription is one time-ordered fragment of a consultation transcript.
type Transcription struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConsultationID uuid.UUID `json:"consultation_id" db:"consultation_id"`
	Speaker        *string   `json:"speaker,omitempty" db:"speaker"`
	Content        string    `json:"content" db:"content"`
	RecordedAt     time.Time `json:"recorded_at" db:"recorded_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type CreateTranscriptionRequest struct {
	Speaker    *string    `json:"speaker" binding:"omitempty,max=50"`
	Content    string     `json:"content" binding:"required"`
	RecordedAt *time.Time `json:"recorded_at"`
}
