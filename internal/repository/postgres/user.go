package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const userColumns = `id, email, password_hash, provider, email_confirmed_at, last_sign_in_at, created_at, updated_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

// Create inserts the identity and its profile in one transaction.
func (r *userRepository) Create(ctx context.Context, user *model.User, profile *model.Profile) error {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	profile.ID = user.ID
	profile.CreatedAt, profile.UpdatedAt = now, now
	if profile.ThemePreference == "" {
		profile.ThemePreference = model.ThemeSystem
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, provider, email_confirmed_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Email, user.PasswordHash, user.Provider, user.EmailConfirmedAt, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return model.ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO profiles (id, full_name, role, theme_preference, compact_mode, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			profile.ID, profile.FullName, profile.Role, profile.ThemePreference, profile.CompactMode,
			profile.CreatedAt, profile.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query, args := from("users", userColumns).eq("id", id).single().build()
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query, args := from("users", userColumns).eq("lower(email)", lower(email)).single().build()
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectRows(result, "user")
}

func (r *userRepository) ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_confirmed_at = COALESCE(email_confirmed_at, $1), updated_at = $1 WHERE id = $2`,
		at, id)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	return expectRows(result, "user")
}

func (r *userRepository) UpdateLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_sign_in_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last sign in: %w", err)
	}
	return nil
}
