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

const appointmentColumns = `id, doctor_id, patient_id, patient_name, patient_email, patient_phone, date, time,
	duration, type, reason, location, consultation_mode, notes, status, cancelled_by, cancelled_at,
	cancellation_reason, created_at, updated_at`

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, patient_name, patient_email, patient_phone, date, time,
			duration, type, reason, location, consultation_mode, notes, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.DoctorID,
		appointment.PatientID,
		appointment.PatientName,
		appointment.PatientEmail,
		appointment.PatientPhone,
		appointment.Date.Format(model.DateLayout),
		appointment.Time,
		appointment.Duration,
		appointment.Type,
		appointment.Reason,
		appointment.Location,
		appointment.ConsultationMode,
		appointment.Notes,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query, args := from("appointments", appointmentColumns).eq("id", id).single().build()
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, args...); err != nil {
		return nil, notFound(err, "appointment")
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	appointment.UpdatedAt = time.Now()
	query := `
		UPDATE appointments
		SET patient_name = $1, patient_email = $2, patient_phone = $3, date = $4, time = $5,
			duration = $6, type = $7, reason = $8, location = $9, consultation_mode = $10,
			notes = $11, status = $12, updated_at = $13
		WHERE id = $14
	`
	result, err := r.db.ExecContext(ctx, query,
		appointment.PatientName, appointment.PatientEmail, appointment.PatientPhone, appointment.Date.Format(model.DateLayout),
		appointment.Time, appointment.Duration, appointment.Type, appointment.Reason, appointment.Location,
		appointment.ConsultationMode, appointment.Notes, appointment.Status, appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return expectRows(result, "appointment")
}

// Cancel keeps the row and records who cancelled it and when.
func (r *appointmentRepository) Cancel(ctx context.Context, id, cancelledBy uuid.UUID, at time.Time, reason *string) error {
	query := `
		UPDATE appointments
		SET status = $1, cancelled_by = $2, cancelled_at = $3, cancellation_reason = $4, updated_at = $3
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, model.AppointmentStatusCancelled, cancelledBy, at, reason, id)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return expectRows(result, "appointment")
}

// List orders by date then time.
func (r *appointmentRepository) List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error) {
	q := from("appointments", appointmentColumns).eq("doctor_id", filter.DoctorID)
	if filter.Date != nil {
		q.eq("date", filter.Date.Format(model.DateLayout))
	}
	if filter.From != nil {
		q.gte("date", filter.From.Format(model.DateLayout))
	}
	if filter.To != nil {
		q.lte("date", filter.To.Format(model.DateLayout))
	}
	if filter.Status != "" {
		q.eq("status", filter.Status)
	}
	query, args := q.order("date", true).order("time", true).build()

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountByStatus(ctx context.Context, doctorID uuid.UUID, dr model.DateRange) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	err := r.db.SelectContext(ctx, &counts, `
		SELECT status, COUNT(*) AS count
		FROM appointments
		WHERE doctor_id = $1 AND date >= $2 AND date <= $3
		GROUP BY status`,
		doctorID, dr.From.Format(model.DateLayout), dr.To.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	return counts, nil
}
