package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/email"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/notification"
	"github.com/jwalitptl/practice-api/pkg/auth"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging"
	"github.com/jwalitptl/practice-api/pkg/security"
)

const (
	confirmationTokenExpiry = 48 * time.Hour
	recoveryTokenExpiry     = time.Hour
	oauthStateExpiry        = 10 * time.Minute
	tokenTypeBearer         = "bearer"
)

type Config struct {
	// PublicURL is the browser app; email links point there.
	PublicURL     string
	APIURL        string
	MailViewerURL string
	Development   bool
}

type Dependencies struct {
	Users     repository.UserRepository
	Profiles  repository.ProfileRepository
	Tokens    repository.TokenRepository
	Sessions  repository.SessionRepository
	JWT       auth.JWTService
	Hasher    security.PasswordHasher
	Encryptor security.Encryptor
	Mailer    email.Service
	Broker    messaging.Broker
	Notifier  notification.Notifier
	OAuth     OAuthProvider
	Logger    *logger.Logger
}

type Service struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	tokens    repository.TokenRepository
	sessions  repository.SessionRepository
	jwt       auth.JWTService
	hasher    security.PasswordHasher
	encryptor security.Encryptor
	mailer    email.Service
	broker    messaging.Broker
	notifier  notification.Notifier
	oauth     OAuthProvider
	logger    *logger.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(cfg Config, deps Dependencies) *Service {
	return &Service{
		users:     deps.Users,
		profiles:  deps.Profiles,
		tokens:    deps.Tokens,
		sessions:  deps.Sessions,
		jwt:       deps.JWT,
		hasher:    deps.Hasher,
		encryptor: deps.Encryptor,
		mailer:    deps.Mailer,
		broker:    deps.Broker,
		notifier:  deps.Notifier,
		oauth:     deps.OAuth,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SignUp registers an email identity. The account must be confirmed
// through the emailed link before it can sign in.
func (s *Service) SignUp(ctx context.Context, req *model.SignUpRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.Validation(fmt.Sprintf("password must have at least %d characters", security.MinPasswordLen))
		}
		return nil, apperrors.Internal("failed to sign up", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleDoctor
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Provider:     model.AuthProviderEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &model.Profile{
		ID:              user.ID,
		FullName:        strings.TrimSpace(req.FullName),
		Role:            role,
		ThemePreference: model.ThemeSystem,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.Create(ctx, user, profile); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, apperrors.Conflict("email already registered", err)
		}
		return nil, apperrors.Internal("failed to sign up", err)
	}

	if err := s.sendConfirmation(ctx, user); err != nil {
		s.logger.Warn(err, "failed to send confirmation email", "user_id", user.ID)
	}
	return user, nil
}

func (s *Service) SignInWithPassword(ctx context.Context, req *model.SignInRequest) (*model.Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid credentials", model.ErrInvalidCredentials)
		}
		return nil, apperrors.Internal("failed to sign in", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials", model.ErrInvalidCredentials)
	}
	if !user.EmailConfirmed() {
		return nil, apperrors.Unauthorized("email not confirmed", model.ErrEmailNotConfirmed)
	}

	return s.signIn(ctx, user)
}

func (s *Service) signIn(ctx context.Context, user *model.User) (*model.Session, error) {
	session, err := s.issueSession(ctx, user, uuid.New())
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastSignIn(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn(err, "failed to record sign in", "user_id", user.ID)
	}
	s.publish(ctx, model.AuthEventSignedIn, user.ID, session.ID)
	return session, nil
}

// issueSession signs a token pair for sessionID and records the session for
// the lifetime of the refresh token.
func (s *Service) issueSession(ctx context.Context, user *model.User, sessionID uuid.UUID) (*model.Session, error) {
	role := model.Role("")
	if profile, err := s.profiles.Get(ctx, user.ID); err != nil {
		s.logger.Warn(err, "profile unavailable while issuing session", "user_id", user.ID)
	} else {
		role = profile.Role
	}

	access, accessExp, err := s.jwt.GenerateAccessToken(user, role, sessionID)
	if err != nil {
		return nil, apperrors.Internal("failed to create session", err)
	}
	refresh, refreshExp, err := s.jwt.GenerateRefreshToken(user, role, sessionID)
	if err != nil {
		return nil, apperrors.Internal("failed to create session", err)
	}

	now := s.now()
	if err := s.sessions.Save(ctx, sessionID, user.ID, refreshExp.Sub(now)); err != nil {
		return nil, apperrors.Internal("failed to create session", err)
	}

	return &model.Session{
		ID:           sessionID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(accessExp.Sub(now).Seconds()),
		ExpiresAt:    accessExp,
		User:         user,
	}, nil
}

// RefreshSession rotates the token pair of a live session.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}
	if err := s.checkSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid refresh token", err)
		}
		return nil, apperrors.Internal("failed to refresh session", err)
	}

	session, err := s.issueSession(ctx, user, claims.SessionID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.AuthEventTokenRefreshed, user.ID, session.ID)
	return session, nil
}

// Authenticate validates an access token and checks its session was not revoked.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(accessToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token", err)
	}
	if err := s.checkSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) checkSession(ctx context.Context, sessionID uuid.UUID) error {
	ok, err := s.sessions.Exists(ctx, sessionID)
	if err != nil {
		return apperrors.Internal("failed to check session", err)
	}
	if !ok {
		return apperrors.Unauthorized("session revoked", model.ErrSessionRevoked)
	}
	return nil
}

func (s *Service) SignOut(ctx context.Context, claims *model.TokenClaims) error {
	if err := s.sessions.Revoke(ctx, claims.SessionID); err != nil {
		return apperrors.Internal("failed to sign out", err)
	}
	s.publish(ctx, model.AuthEventSignedOut, claims.UserID, claims.SessionID)
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, err
	}
	return user, nil
}

// ResetPasswordForEmail mails a recovery link. Unknown addresses succeed
// silently so the endpoint does not reveal which emails are registered.
func (s *Service) ResetPasswordForEmail(ctx context.Context, req *model.PasswordResetRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return apperrors.Internal("failed to request password reset", err)
	}

	token, err := s.issueToken(ctx, user.ID, model.UserTokenRecovery, recoveryTokenExpiry)
	if err != nil {
		return apperrors.Internal("failed to request password reset", err)
	}

	base := req.RedirectTo
	if base == "" {
		base = strings.TrimRight(s.cfg.PublicURL, "/") + "/reset-password"
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, withToken(base, token)); err != nil {
		return apperrors.Internal("failed to send password reset email", err)
	}

	if s.cfg.Development && s.cfg.MailViewerURL != "" {
		s.logger.Info(fmt.Sprintf("password reset email sent, check the local mail viewer at %s", s.cfg.MailViewerURL), "email", user.Email)
	}
	s.publish(ctx, model.AuthEventPasswordRecovery, user.ID, uuid.Nil)
	return nil
}

// UpdatePassword consumes a recovery token, sets the new password and revokes every session.
func (s *Service) UpdatePassword(ctx context.Context, req *model.PasswordUpdateRequest) error {
	userID, err := s.tokens.Consume(ctx, model.UserTokenRecovery, security.HashToken(req.Token))
	if err != nil {
		if errors.Is(err, model.ErrInvalidToken) {
			return apperrors.BadRequest("invalid or expired token", err)
		}
		return apperrors.Internal("failed to update password", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return apperrors.Validation(fmt.Sprintf("password must have at least %d characters", security.MinPasswordLen))
		}
		return apperrors.Internal("failed to update password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.Internal("failed to update password", err)
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.logger.Warn(err, "failed to revoke sessions after password change", "user_id", userID)
	}
	s.publish(ctx, model.AuthEventUserUpdated, userID, uuid.Nil)
	return nil
}

// ResendConfirmation is a no-op for unknown or already confirmed addresses.
func (s *Service) ResendConfirmation(ctx context.Context, req *model.ResendConfirmationRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return apperrors.Internal("failed to resend confirmation", err)
	}
	if user.EmailConfirmed() {
		return nil
	}
	if err := s.sendConfirmation(ctx, user); err != nil {
		return apperrors.Internal("failed to resend confirmation", err)
	}
	return nil
}

// ConfirmEmail consumes a confirmation token and signs the user in.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*model.Session, error) {
	userID, err := s.tokens.Consume(ctx, model.UserTokenConfirmation, security.HashToken(token))
	if err != nil {
		if errors.Is(err, model.ErrInvalidToken) {
			return nil, apperrors.BadRequest("invalid or expired token", err)
		}
		return nil, apperrors.Internal("failed to confirm email", err)
	}
	if err := s.users.ConfirmEmail(ctx, userID, s.now()); err != nil {
		return nil, apperrors.Internal("failed to confirm email", err)
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to confirm email", err)
	}
	return s.signIn(ctx, user)
}

type oauthState struct {
	Nonce      string    `json:"n"`
	RedirectTo string    `json:"r,omitempty"`
	ExpiresAt  time.Time `json:"e"`
}

// SignInWithOAuth returns the provider URL to send the browser to.
func (s *Service) SignInWithOAuth(ctx context.Context, redirectTo string) (string, error) {
	if s.oauth == nil {
		return "", apperrors.BadRequest("oauth sign in is not configured", nil)
	}
	nonce, err := security.NewToken()
	if err != nil {
		return "", apperrors.Internal("failed to start oauth sign in", err)
	}
	raw, err := json.Marshal(oauthState{Nonce: nonce, RedirectTo: redirectTo, ExpiresAt: s.now().Add(oauthStateExpiry)})
	if err != nil {
		return "", apperrors.Internal("failed to start oauth sign in", err)
	}
	state, err := s.encryptor.EncryptString(string(raw))
	if err != nil {
		return "", apperrors.Internal("failed to start oauth sign in", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// ExchangeOAuthCode completes the provider callback. Unknown emails get a
// confirmed account; known ones are signed in. It also returns the redirect
// requested when the flow started.
func (s *Service) ExchangeOAuthCode(ctx context.Context, code, state string) (*model.Session, string, error) {
	if s.oauth == nil {
		return nil, "", apperrors.BadRequest("oauth sign in is not configured", nil)
	}
	raw, err := s.encryptor.DecryptString(state)
	if err != nil {
		return nil, "", apperrors.BadRequest("invalid oauth state", err)
	}
	var st oauthState
	if err := json.Unmarshal([]byte(raw), &st); err != nil || s.now().After(st.ExpiresAt) {
		return nil, "", apperrors.BadRequest("invalid oauth state", err)
	}

	identity, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, "", apperrors.Unauthorized("oauth sign in failed", err)
	}
	if !identity.EmailVerified {
		return nil, "", apperrors.Unauthorized("oauth email not verified", model.ErrEmailNotConfirmed)
	}

	emailAddr := normalizeEmail(identity.Email)
	user, err := s.users.GetByEmail(ctx, emailAddr)
	switch {
	case apperrors.IsNotFound(err):
		user, err = s.createOAuthUser(ctx, emailAddr, identity.Name)
		if err != nil {
			return nil, "", err
		}
	case err != nil:
		return nil, "", apperrors.Internal("oauth sign in failed", err)
	case !user.EmailConfirmed():
		// the provider has verified the address
		if err := s.users.ConfirmEmail(ctx, user.ID, s.now()); err != nil {
			return nil, "", apperrors.Internal("oauth sign in failed", err)
		}
	}

	session, err := s.signIn(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return session, st.RedirectTo, nil
}

func (s *Service) createOAuthUser(ctx context.Context, emailAddr, name string) (*model.User, error) {
	now := s.now()
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(emailAddr, "@", 2)[0]
	}
	user := &model.User{
		ID:               uuid.New(),
		Email:            emailAddr,
		Provider:         model.AuthProviderGoogle,
		EmailConfirmedAt: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	profile := &model.Profile{
		ID:              user.ID,
		FullName:        name,
		Role:            model.RoleDoctor,
		ThemePreference: model.ThemeSystem,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(ctx, user, profile); err != nil {
		return nil, apperrors.Internal("oauth sign in failed", err)
	}
	return user, nil
}

// Events streams the auth events of one user until ctx is done.
func (s *Service) Events(ctx context.Context, userID uuid.UUID) (<-chan []byte, error) {
	ch, err := s.broker.Subscribe(ctx, messaging.UserChannel(messaging.ChannelAuthEvents, userID.String()))
	if err != nil {
		return nil, apperrors.Internal("failed to subscribe to auth events", err)
	}
	return ch, nil
}

func (s *Service) publish(ctx context.Context, typ model.AuthEventType, userID, sessionID uuid.UUID) {
	event := model.AuthEvent{Event: typ, UserID: userID, SessionID: sessionID, At: s.now()}
	channel := messaging.UserChannel(messaging.ChannelAuthEvents, userID.String())
	if err := s.broker.Publish(ctx, channel, event); err != nil {
		s.logger.Warn(err, "failed to publish auth event", "event", string(typ), "user_id", userID)
	}
}

func (s *Service) sendConfirmation(ctx context.Context, user *model.User) error {
	token, err := s.issueToken(ctx, user.ID, model.UserTokenConfirmation, confirmationTokenExpiry)
	if err != nil {
		return err
	}
	link := withToken(strings.TrimRight(s.cfg.APIURL, "/")+"/api/v1/auth/confirm", token)
	return s.mailer.SendConfirmation(ctx, user.Email, link)
}

func (s *Service) issueToken(ctx context.Context, userID uuid.UUID, kind model.UserTokenKind, ttl time.Duration) (string, error) {
	token, err := security.NewToken()
	if err != nil {
		return "", err
	}
	if err := s.tokens.Store(ctx, userID, kind, security.HashToken(token), s.now().Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

func withToken(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
