package email

import (
	"context"
)

// Service sends transactional mail.
type Service interface {
	SendConfirmation(ctx context.Context, to, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
	SendNotification(ctx context.Context, to, subject, body string) error
}
