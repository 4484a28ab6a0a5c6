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

const notificationColumns = `id, user_id, type, title, message, priority, channel, status, metadata, read_at, created_at`

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{NewBaseRepository(db)}
}

// Create inserts the notification and, when event is non-nil, its outbox
// event in the same transaction.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification, event *model.OutboxEvent) error {
	n.CreatedAt = time.Now()
	if len(n.Metadata) == 0 {
		n.Metadata = []byte("{}")
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (id, user_id, type, title, message, priority, channel, status, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			n.ID, n.UserID, n.Type, n.Title, n.Message, n.Priority, n.Channel, n.Status, n.Metadata, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		if event == nil {
			return nil
		}
		return insertOutboxEvent(ctx, tx, event)
	})
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query, args := from("notifications", notificationColumns).eq("id", id).single().build()
	var n model.Notification
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return nil, notFound(err, "notification")
	}
	return &n, nil
}

func (r *notificationRepository) List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, error) {
	q := from("notifications", notificationColumns).
		eq("user_id", filter.UserID).
		eq("channel", model.NotificationChannelInApp)
	if filter.UnreadOnly {
		q.eq("status", model.NotificationStatusUnread)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query, args := q.order("created_at", false).limitTo(limit).build()

	notifications := []*model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET status = $1, read_at = COALESCE(read_at, $2)
		WHERE id = $3 AND user_id = $4`,
		model.NotificationStatusRead, at, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectRows(result, "notification")
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET status = $1, read_at = $2
		WHERE user_id = $3 AND status = $4`,
		model.NotificationStatusRead, at, userID, model.NotificationStatusUnread)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return expectRows(result, "notification")
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND channel = $2 AND status = $3`,
		userID, model.NotificationChannelInApp, model.NotificationStatusUnread)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}
