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

const profileColumns = `id, full_name, role, crm, specialty, clinic_name, custom_title, phone,
	theme_preference, compact_mode, first_login_at, created_at, updated_at`

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query, args := from("profiles", profileColumns).eq("id", id).single().build()
	var profile model.Profile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		return nil, notFound(err, "profile")
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	profile.UpdatedAt = time.Now()
	query := `
		UPDATE profiles
		SET full_name = $1, crm = $2, specialty = $3, clinic_name = $4, custom_title = $5,
			phone = $6, theme_preference = $7, compact_mode = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		profile.FullName, profile.CRM, profile.Specialty, profile.ClinicName, profile.CustomTitle,
		profile.Phone, profile.ThemePreference, profile.CompactMode, profile.UpdatedAt, profile.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return expectRows(result, "profile")
}

func (r *profileRepository) MarkFirstLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET first_login_at = $1, updated_at = $1 WHERE id = $2 AND first_login_at IS NULL`,
		at, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark first login: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
