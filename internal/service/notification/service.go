package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const defaultListLimit = 50

// Notifier is the narrow view other services use to raise notifications.
type Notifier interface {
	Notify(ctx context.Context, n *model.NewNotification) (*model.Notification, error)
}

type Service struct {
	repo  repository.NotificationRepository
	users repository.UserRepository
	now   func() time.Time
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository) *Service {
	return &Service{repo: repo, users: users, now: time.Now}
}

// Notify stores the notification together with a notification.created outbox event.
func (s *Service) Notify(ctx context.Context, in *model.NewNotification) (*model.Notification, error) {
	if in.Title == "" || in.Message == "" {
		return nil, apperrors.Validation("title and message are required")
	}

	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Priority:  in.Priority,
		Channel:   in.Channel,
		Status:    model.NotificationStatusUnread,
		CreatedAt: s.now(),
	}
	if n.Type == "" {
		n.Type = model.NotificationTypeSystem
	}
	if n.Priority == "" {
		n.Priority = model.NotificationPriorityNormal
	}
	if n.Channel == "" {
		n.Channel = model.NotificationChannelInApp
	}
	if len(in.Metadata) > 0 {
		data, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification metadata: %w", err)
		}
		n.Metadata = data
	}

	dispatch := model.NotificationDispatch{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        n.Channel,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
	}
	if n.Channel == model.NotificationChannelEmail {
		user, err := s.users.Get(ctx, n.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve notification recipient: %w", err)
		}
		dispatch.Email = user.Email
	}

	event, err := model.NewOutboxEvent(model.EventNotificationCreated, dispatch)
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox event: %w", err)
	}
	if err := s.repo.Create(ctx, n, event); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID, s.now()); err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func mapNotFound(err error) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NotFound("notification", err)
	}
	return err
}
