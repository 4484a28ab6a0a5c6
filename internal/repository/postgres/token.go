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

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(db *sqlx.DB) repository.TokenRepository {
	return &tokenRepository{NewBaseRepository(db)}
}

// Store replaces any unused token of the same kind for the user.
func (r *tokenRepository) Store(ctx context.Context, userID uuid.UUID, kind model.UserTokenKind, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO user_tokens (user_id, kind, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, kind) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, used_at = NULL, created_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, kind, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to store %s token: %w", kind, err)
	}
	return nil
}

// Consume marks a valid token used and returns its owner.
func (r *tokenRepository) Consume(ctx context.Context, kind model.UserTokenKind, tokenHash string) (uuid.UUID, error) {
	query := `
		UPDATE user_tokens
		SET used_at = NOW()
		WHERE token_hash = $1
		AND kind = $2
		AND used_at IS NULL
		AND expires_at > NOW()
		RETURNING user_id
	`
	var userID uuid.UUID
	if err := r.db.GetContext(ctx, &userID, query, tokenHash, kind); err != nil {
		return uuid.Nil, model.ErrInvalidToken
	}
	return userID, nil
}
