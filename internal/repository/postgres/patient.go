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

const patientColumns = `id, doctor_id, full_name, birth_date, gender, email, phone, address, emergency_contact,
	chief_complaint, family_history, medications, allergies, notes, status, created_at, updated_at`

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, doctor_id, full_name, birth_date, gender, email, phone, address, emergency_contact,
			chief_complaint, family_history, medications, allergies, notes, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.DoctorID,
		patient.FullName,
		patient.BirthDate.Format(model.DateLayout),
		patient.Gender,
		patient.Email,
		patient.Phone,
		patient.Address,
		patient.EmergencyContact,
		patient.ChiefComplaint,
		patient.FamilyHistory,
		patient.Medications,
		patient.Allergies,
		patient.Notes,
		patient.Status,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query, args := from("patients", patientColumns).eq("id", id).single().build()
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, args...); err != nil {
		return nil, notFound(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now()
	query := `
		UPDATE patients
		SET full_name = $1, birth_date = $2, gender = $3, email = $4, phone = $5, address = $6,
			emergency_contact = $7, chief_complaint = $8, family_history = $9, medications = $10,
			allergies = $11, notes = $12, status = $13, updated_at = $14
		WHERE id = $15
	`
	result, err := r.db.ExecContext(ctx, query,
		patient.FullName, patient.BirthDate.Format(model.DateLayout), patient.Gender, patient.Email, patient.Phone, patient.Address,
		patient.EmergencyContact, patient.ChiefComplaint, patient.FamilyHistory, patient.Medications,
		patient.Allergies, patient.Notes, patient.Status, patient.UpdatedAt, patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return expectRows(result, "patient")
}

// Archive is the soft delete: the row stays, status becomes archived.
func (r *patientRepository) Archive(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE patients SET status = $1, updated_at = $2 WHERE id = $3`,
		model.PatientStatusArchived, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to archive patient: %w", err)
	}
	return expectRows(result, "patient")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return expectRows(result, "patient")
}

func (r *patientRepository) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	q := from("patients", patientColumns).eq("doctor_id", filter.DoctorID)
	if filter.Status != "" {
		q.eq("status", filter.Status)
	}
	if filter.Search != "" {
		q.ilike("full_name", filter.Search)
	}
	query, args := q.order("full_name", true).build()

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) CountByStatus(ctx context.Context, doctorID uuid.UUID) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	err := r.db.SelectContext(ctx, &counts,
		`SELECT status, COUNT(*) AS count FROM patients WHERE doctor_id = $1 GROUP BY status`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	return counts, nil
}
