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

const reportColumns = `id, consultation_id, doctor_id, bucket, file_path, file_name, file_size, content_type,
	page_count, generated_at, created_at`

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.ConsultationReport) error {
	report.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consultation_reports (
			id, consultation_id, doctor_id, bucket, file_path, file_name, file_size, content_type,
			page_count, generated_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		report.ID, report.ConsultationID, report.DoctorID, report.Bucket, report.FilePath, report.FileName,
		report.FileSize, report.ContentType, report.PageCount, report.GeneratedAt, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation report: %w", err)
	}
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConsultationReport, error) {
	query, args := from("consultation_reports", reportColumns).eq("id", id).single().build()
	var report model.ConsultationReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		return nil, notFound(err, "consultation report")
	}
	return &report, nil
}

func (r *reportRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.ConsultationReport, error) {
	query, args := from("consultation_reports", reportColumns).
		eq("consultation_id", consultationID).
		order("generated_at", false).
		build()

	reports := []*model.ConsultationReport{}
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list consultation reports: %w", err)
	}
	return reports, nil
}

func (r *reportRepository) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM consultation_reports WHERE doctor_id = $1`, doctorID); err != nil {
		return 0, fmt.Errorf("failed to count consultation reports: %w", err)
	}
	return n, nil
}
