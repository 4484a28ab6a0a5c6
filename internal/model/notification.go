package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

type NotificationType string

const (
	NotificationTypeWelcome                 NotificationType = "welcome"
	NotificationTypeAppointmentReminder     NotificationType = "appointment_reminder"
	NotificationTypeAppointmentConfirmation NotificationType = "appointment_confirmation"
	NotificationTypeAppointmentCancellation NotificationType = "appointment_cancellation"
	NotificationTypeSystem                  NotificationType = "system"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "in_app"
	NotificationChannelEmail NotificationChannel = "email"
)

type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

type Notification struct {
	ID        uuid.UUID            `json:"id" db:"id"`
	UserID    uuid.UUID            `json:"user_id" db:"user_id"`
	Type      NotificationType     `json:"type" db:"type"`
	Title     string               `json:"title" db:"title"`
	Message   string               `json:"message" db:"message"`
	Priority  NotificationPriority `json:"priority" db:"priority"`
	Channel   NotificationChannel  `json:"channel" db:"channel"`
	Status    NotificationStatus   `json:"status" db:"status"`
	Metadata  types.JSONText       `json:"metadata,omitempty" db:"metadata"`
	ReadAt    *time.Time           `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
}

type NotificationFilter struct {
	UserID     uuid.UUID
	UnreadOnly bool `form:"unread"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=200"`
}

// NotificationDispatch is the outbox payload for a created notification.
type NotificationDispatch struct {
	NotificationID uuid.UUID           `json:"notification_id"`
	UserID         uuid.UUID           `json:"user_id"`
	Channel        NotificationChannel `json:"channel"`
	Type           NotificationType    `json:"type"`
	Title          string              `json:"title"`
	Message        string              `json:"message"`
	Email          string              `json:"email,omitempty"`
}

// NewNotification is what services pass to the notification service.
type NewNotification struct {
	UserID   uuid.UUID
	Type     NotificationType
	Title    string
	Message  string
	Priority NotificationPriority
	Channel  NotificationChannel
	Metadata map[string]interface{}
}

type UnreadCount struct {
	Count int `json:"count"`
}
