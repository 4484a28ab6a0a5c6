package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const consultationColumns = `id, doctor_id, patient_id, appointment_id, started_at, ended_at, chief_complaint,
	clinical_notes, diagnosis, prescription, audio_path, status, created_at, updated_at`

type consultationRepository struct {
	db *sqlx.DB
}

func NewConsultationRepository(db *sqlx.DB) repository.ConsultationRepository {
	return &consultationRepository{db: db}
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, doctor_id, patient_id, appointment_id, started_at, chief_complaint, clinical_notes,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.DoctorID, c.PatientID, c.AppointmentID, c.StartedAt, c.ChiefComplaint, c.ClinicalNotes,
		c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query, args := from("consultations", consultationColumns).eq("id", id).single().build()
	var c model.Consultation
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		return nil, notFound(err, "consultation")
	}
	return &c, nil
}

func (r *consultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	c.UpdatedAt = time.Now()
	query := `
		UPDATE consultations
		SET chief_complaint = $1, clinical_notes = $2, diagnosis = $3, prescription = $4,
			status = $5, ended_at = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		c.ChiefComplaint, c.ClinicalNotes, c.Diagnosis, c.Prescription, c.Status, c.EndedAt, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return expectRows(result, "consultation")
}

func (r *consultationRepository) SetAudioPath(ctx context.Context, id uuid.UUID, path string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE consultations SET audio_path = $1, updated_at = $2 WHERE id = $3`, path, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set consultation audio: %w", err)
	}
	return expectRows(result, "consultation")
}

func (r *consultationRepository) List(ctx context.Context, filter *model.ConsultationFilter) ([]*model.Consultation, error) {
	q := from("consultations", consultationColumns).eq("doctor_id", filter.DoctorID)
	if filter.PatientID != nil {
		q.eq("patient_id", *filter.PatientID)
	}
	query, args := q.order("started_at", false).build()

	consultations := []*model.Consultation{}
	if err := r.db.SelectContext(ctx, &consultations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}

func (r *consultationRepository) CountSince(ctx context.Context, doctorID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM consultations WHERE doctor_id = $1 AND started_at >= $2`, doctorID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count consultations: %w", err)
	}
	return n, nil
}
