package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/practice-api/internal/repository"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

type sessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) repository.SessionRepository {
	return &sessionRepository{client: client}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func userSessionsKey(id uuid.UUID) string {
	return userSessionKeyPrefix + id.String()
}

func (r *sessionRepository) Save(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), userID.String(), ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), sessionID.String())
	pipe.Expire(ctx, userSessionsKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Exists(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n == 1, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	userID, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionKeyPrefix+userID, sessionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAll ends every session of the user, e.g. after a password change.
func (r *sessionRepository) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	ids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, userSessionsKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}
