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

type transcriptionRepository struct {
	db *sqlx.DB
}

func NewTranscriptionRepository(db *sqlx.DB) repository.TranscriptionRepository {
	return &transcriptionRepository{db: db}
}

func (r *transcriptionRepository) Create(ctx context.Context, t *model.Transcription) error {
	t.CreatedAt = time.Now()
	if t.RecordedAt.IsZero() {
		t.RecordedAt = t.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcriptions (id, consultation_id, speaker, content, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.ConsultationID, t.Speaker, t.Content, t.RecordedAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transcription: %w", err)
	}
	return nil
}

// ListByConsultation returns fragments in recording order.
func (r *transcriptionRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Transcription, error) {
	query, args := from("transcriptions", "id, consultation_id, speaker, content, recorded_at, created_at").
		eq("consultation_id", consultationID).
		order("recorded_at", true).
		order("created_at", true).
		build()

	transcriptions := []*model.Transcription{}
	if err := r.db.SelectContext(ctx, &transcriptions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transcriptions: %w", err)
	}
	return transcriptions, nil
}
