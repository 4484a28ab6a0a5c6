package auth

import (
	"context"

	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

// Resolve reconciles an access token with the stored session and returns the
// current identity. A profile that cannot be loaded leaves Profile nil; the
// session stays valid and no error is returned.
func (s *Service) Resolve(ctx context.Context, accessToken string) (*model.AuthState, error) {
	claims, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("user no longer exists", err)
		}
		return nil, apperrors.Internal("failed to load session", err)
	}

	state := &model.AuthState{
		Session: &model.Session{
			ID:          claims.SessionID,
			AccessToken: accessToken,
			TokenType:   tokenTypeBearer,
			User:        user,
		},
		User: user,
	}
	if claims.ExpiresAt != nil {
		state.Session.ExpiresAt = claims.ExpiresAt.Time
		state.Session.ExpiresIn = int64(claims.ExpiresAt.Time.Sub(s.now()).Seconds())
	}

	profile, err := s.profiles.Get(ctx, user.ID)
	if err != nil {
		s.logger.Warn(err, "failed to load profile", "user_id", user.ID)
		return state, nil
	}
	if profile.FirstLoginAt == nil {
		s.welcome(ctx, profile)
	}
	state.Profile = profile
	return state, nil
}

// welcome stamps the first login and sends the welcome notification. Only the
// caller that wins the conditional update sends it.
func (s *Service) welcome(ctx context.Context, profile *model.Profile) {
	now := s.now()
	first, err := s.profiles.MarkFirstLogin(ctx, profile.ID, now)
	if err != nil {
		s.logger.Warn(err, "failed to record first login", "user_id", profile.ID)
		return
	}
	if !first {
		return
	}
	profile.FirstLoginAt = &now

	_, err = s.notifier.Notify(ctx, &model.NewNotification{
		UserID:   profile.ID,
		Type:     model.NotificationTypeWelcome,
		Title:    "Bem-vindo(a)!",
		Message:  welcomeMessage(profile),
		Priority: model.NotificationPriorityNormal,
		Channel:  model.NotificationChannelInApp,
	})
	if err != nil {
		s.logger.Warn(err, "failed to create welcome notification", "user_id", profile.ID)
	}
}

func welcomeMessage(p *model.Profile) string {
	name := p.FullName
	if title := p.DisplayTitle(); title != "" {
		name = title + " " + name
	}
	return "Olá, " + name + "! Sua conta está pronta. Comece cadastrando seus pacientes e agendando consultas."
}
