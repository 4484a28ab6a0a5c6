package model

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationReport records a generated PDF kept in object storage.
type ConsultationReport struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConsultationID uuid.UUID `json:"consultation_id" db:"consultation_id"`
	DoctorID       uuid.UUID `json:"doctor_id" db:"doctor_id"`
	Bucket         string    `json:"bucket" db:"bucket"`
	FilePath       string    `json:"file_path" db:"file_path"`
	FileName       string    `json:"file_name" db:"file_name"`
	FileSize       int64     `json:"file_size" db:"file_size"`
	ContentType    string    `json:"content_type" db:"content_type"`
	PageCount      int       `json:"page_count" db:"page_count"`
	GeneratedAt    time.Time `json:"generated_at" db:"generated_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
