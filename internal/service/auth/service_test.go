package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository/mocks"
	"github.com/jwalitptl/practice-api/pkg/auth"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/security"
)

type sentMail struct {
	kind, to, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind, to, link})
	return nil
}

func (m *fakeMailer) SendConfirmation(_ context.Context, to, link string) error {
	return m.record("confirmation", to, link)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	return m.record("reset", to, link)
}

func (m *fakeMailer) SendNotification(_ context.Context, to, subject, _ string) error {
	return m.record("notification", to, subject)
}

type fakeBroker struct {
	mu        sync.Mutex
	published map[string][]interface{}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string][]interface{}{}
	}
	b.published[channel] = append(b.published[channel], message)
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) events() []model.AuthEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.AuthEventType
	for _, msgs := range b.published {
		for _, m := range msgs {
			out = append(out, m.(model.AuthEvent).Event)
		}
	}
	return out
}

type fakeNotifier struct{ mock.Mock }

func (n *fakeNotifier) Notify(ctx context.Context, in *model.NewNotification) (*model.Notification, error) {
	args := n.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

type fakeOAuth struct {
	user     *OAuthUser
	err      error
	lastCode string
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*OAuthUser, error) {
	f.lastCode = code
	return f.user, f.err
}

type testEnv struct {
	svc      *Service
	users    *mocks.UserRepository
	profiles *mocks.ProfileRepository
	tokens   *mocks.TokenRepository
	sessions *mocks.SessionRepository
	jwt      auth.JWTService
	hasher   security.PasswordHasher
	mailer   *fakeMailer
	broker   *fakeBroker
	notifier *fakeNotifier
	oauth    *fakeOAuth
	logs     *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	enc, err := security.NewAESEncryptorFromSecret("state-secret")
	require.NoError(t, err)

	env := &testEnv{
		users:    &mocks.UserRepository{},
		profiles: &mocks.ProfileRepository{},
		tokens:   &mocks.TokenRepository{},
		sessions: &mocks.SessionRepository{},
		jwt:      auth.NewJWTService(auth.Config{Secret: "test-secret", Issuer: "practice-test"}),
		hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		mailer:   &fakeMailer{},
		broker:   &fakeBroker{},
		notifier: &fakeNotifier{},
		oauth:    &fakeOAuth{},
		logs:     &bytes.Buffer{},
	}
	env.svc = NewService(Config{
		PublicURL:     "http://app.test",
		APIURL:        "http://api.test",
		MailViewerURL: "http://localhost:54324",
		Development:   true,
	}, Dependencies{
		Users:     env.users,
		Profiles:  env.profiles,
		Tokens:    env.tokens,
		Sessions:  env.sessions,
		JWT:       env.jwt,
		Hasher:    env.hasher,
		Encryptor: enc,
		Mailer:    env.mailer,
		Broker:    env.broker,
		Notifier:  env.notifier,
		OAuth:     env.oauth,
		Logger:    logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Format: "json", Output: env.logs}),
	})
	return env
}

func (e *testEnv) confirmedUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	now := time.Now()
	return &model.User{ID: uuid.New(), Email: "dra.ana@example.com", PasswordHash: hash, Provider: model.AuthProviderEmail, EmailConfirmedAt: &now}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestSignUpSendsConfirmation(t *testing.T) {
	env := newTestEnv(t)

	var storedHash string
	env.users.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.tokens.On("Store", mock.Anything, mock.Anything, model.UserTokenConfirmation, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { storedHash = args.String(3) }).
		Return(nil)

	user, err := env.svc.SignUp(context.Background(), &model.SignUpRequest{
		Email: " Dra.Ana@Example.com ", Password: "segredo123", FullName: "Ana Lima",
	})
	require.NoError(t, err)
	assert.Equal(t, "dra.ana@example.com", user.Email)
	assert.False(t, user.EmailConfirmed())

	profile := env.users.Calls[0].Arguments.Get(2).(*model.Profile)
	assert.Equal(t, model.RoleDoctor, profile.Role)
	assert.Equal(t, user.ID, profile.ID)

	require.Len(t, env.mailer.sent, 1)
	link, err := url.Parse(env.mailer.sent[0].link)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/auth/confirm", link.Path)
	assert.Equal(t, storedHash, security.HashToken(link.Query().Get("token")))
}

func TestSignUpEmailTaken(t *testing.T) {
	env := newTestEnv(t)
	env.users.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("failed to create user: %w", model.ErrEmailTaken))

	_, err := env.svc.SignUp(context.Background(), &model.SignUpRequest{Email: "a@b.com", Password: "segredo123", FullName: "Ana"})
	assertCode(t, err, apperrors.ErrConflict)
	assert.Empty(t, env.mailer.sent)
}

func TestSignUpShortPassword(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.SignUp(context.Background(), &model.SignUpRequest{Email: "a@b.com", Password: "123", FullName: "Ana"})
	assertCode(t, err, apperrors.ErrValidation)
	env.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignInWithPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")

	env.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	env.users.On("UpdateLastSignIn", mock.Anything, user.ID, mock.Anything).Return(nil)
	env.profiles.On("Get", mock.Anything, user.ID).Return(&model.Profile{ID: user.ID, Role: model.RoleDoctor}, nil)
	env.sessions.On("Save", mock.Anything, mock.Anything, user.ID, mock.Anything).Return(nil)

	session, err := env.svc.SignInWithPassword(context.Background(), &model.SignInRequest{Email: user.Email, Password: "segredo123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", session.TokenType)
	assert.Positive(t, session.ExpiresIn)

	claims, err := env.jwt.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.ID, claims.SessionID)
	assert.Equal(t, model.RoleDoctor, claims.Role)

	assert.Equal(t, []model.AuthEventType{model.AuthEventSignedIn}, env.broker.events())
	env.sessions.AssertExpectations(t)
}

func TestSignInRejections(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")
	unconfirmed := env.confirmedUser(t, "segredo123")
	unconfirmed.Email = "new@example.com"
	unconfirmed.EmailConfirmedAt = nil

	env.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	env.users.On("GetByEmail", mock.Anything, unconfirmed.Email).Return(unconfirmed, nil)
	env.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, fmt.Errorf("user: %w", apperrors.ErrRecordNotFound))

	ctx := context.Background()
	_, err := env.svc.SignInWithPassword(ctx, &model.SignInRequest{Email: user.Email, Password: "wrong-pass"})
	assertCode(t, err, apperrors.ErrUnauthorized)
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = env.svc.SignInWithPassword(ctx, &model.SignInRequest{Email: "ghost@example.com", Password: "segredo123"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = env.svc.SignInWithPassword(ctx, &model.SignInRequest{Email: unconfirmed.Email, Password: "segredo123"})
	assert.ErrorIs(t, err, model.ErrEmailNotConfirmed)

	env.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshSessionRevoked(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")
	sessionID := uuid.New()
	refresh, _, err := env.jwt.GenerateRefreshToken(user, model.RoleDoctor, sessionID)
	require.NoError(t, err)

	env.sessions.On("Exists", mock.Anything, sessionID).Return(false, nil)

	_, err = env.svc.RefreshSession(context.Background(), refresh)
	assert.ErrorIs(t, err, model.ErrSessionRevoked)
}

func TestRefreshSessionKeepsSessionID(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")
	sessionID := uuid.New()
	refresh, _, err := env.jwt.GenerateRefreshToken(user, model.RoleDoctor, sessionID)
	require.NoError(t, err)

	env.sessions.On("Exists", mock.Anything, sessionID).Return(true, nil)
	env.sessions.On("Save", mock.Anything, sessionID, user.ID, mock.Anything).Return(nil)
	env.users.On("Get", mock.Anything, user.ID).Return(user, nil)
	env.profiles.On("Get", mock.Anything, user.ID).Return(nil, errors.New("db down"))

	session, err := env.svc.RefreshSession(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, sessionID, session.ID)
	assert.Equal(t, []model.AuthEventType{model.AuthEventTokenRefreshed}, env.broker.events())
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")
	access, _, err := env.jwt.GenerateAccessToken(user, model.RoleDoctor, uuid.New())
	require.NoError(t, err)

	_, err = env.svc.RefreshSession(context.Background(), access)
	assertCode(t, err, apperrors.ErrUnauthorized)
}

func TestSignOutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	claims := &model.TokenClaims{UserID: uuid.New(), SessionID: uuid.New()}
	env.sessions.On("Revoke", mock.Anything, claims.SessionID).Return(nil)

	require.NoError(t, env.svc.SignOut(context.Background(), claims))
	assert.Equal(t, []model.AuthEventType{model.AuthEventSignedOut}, env.broker.events())
}

func TestResetPasswordForEmailDevHint(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")
	env.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	env.tokens.On("Store", mock.Anything, user.ID, model.UserTokenRecovery, mock.Anything, mock.Anything).Return(nil)

	err := env.svc.ResetPasswordForEmail(context.Background(), &model.PasswordResetRequest{Email: user.Email})
	require.NoError(t, err)

	require.Len(t, env.mailer.sent, 1)
	assert.Contains(t, env.mailer.sent[0].link, "http://app.test/reset-password?token=")
	assert.Contains(t, env.logs.String(), "check the local mail viewer at http://localhost:54324")
	assert.Equal(t, []model.AuthEventType{model.AuthEventPasswordRecovery}, env.broker.events())
}

func TestResetPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	env.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, fmt.Errorf("user: %w", apperrors.ErrRecordNotFound))

	err := env.svc.ResetPasswordForEmail(context.Background(), &model.PasswordResetRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Empty(t, env.mailer.sent)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()

	env.tokens.On("Consume", mock.Anything, model.UserTokenRecovery, security.HashToken("good")).Return(userID, nil)
	env.tokens.On("Consume", mock.Anything, model.UserTokenRecovery, security.HashToken("used")).
		Return(uuid.Nil, model.ErrInvalidToken)
	env.users.On("UpdatePassword", mock.Anything, userID, mock.Anything).Return(nil)
	env.sessions.On("RevokeAll", mock.Anything, userID).Return(nil)

	ctx := context.Background()
	require.NoError(t, env.svc.UpdatePassword(ctx, &model.PasswordUpdateRequest{Token: "good", Password: "nova-senha-1"}))
	env.sessions.AssertCalled(t, "RevokeAll", mock.Anything, userID)

	hash := env.users.Calls[0].Arguments.String(2)
	assert.NoError(t, env.hasher.Compare(hash, "nova-senha-1"))

	err := env.svc.UpdatePassword(ctx, &model.PasswordUpdateRequest{Token: "used", Password: "nova-senha-1"})
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestConfirmEmailSignsIn(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")

	env.tokens.On("Consume", mock.Anything, model.UserTokenConfirmation, security.HashToken("tok")).Return(user.ID, nil)
	env.users.On("ConfirmEmail", mock.Anything, user.ID, mock.Anything).Return(nil)
	env.users.On("Get", mock.Anything, user.ID).Return(user, nil)
	env.users.On("UpdateLastSignIn", mock.Anything, user.ID, mock.Anything).Return(nil)
	env.profiles.On("Get", mock.Anything, user.ID).Return(&model.Profile{ID: user.ID, Role: model.RoleDoctor}, nil)
	env.sessions.On("Save", mock.Anything, mock.Anything, user.ID, mock.Anything).Return(nil)

	session, err := env.svc.ConfirmEmail(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
}

func TestResendConfirmationSkipsConfirmed(t *testing.T) {
	env := newTestEnv(t)
	user := env.confirmedUser(t, "segredo123")
	env.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	require.NoError(t, env.svc.ResendConfirmation(context.Background(), &model.ResendConfirmationRequest{Email: user.Email}))
	assert.Empty(t, env.mailer.sent)
}

func TestOAuthFlowCreatesUser(t *testing.T) {
	env := newTestEnv(t)
	env.oauth.user = &OAuthUser{Subject: "g-1", Email: "Joao@Example.com", EmailVerified: true, Name: "João Silva"}

	authURL, err := env.svc.SignInWithOAuth(context.Background(), "http://app.test/dashboard")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	env.users.On("GetByEmail", mock.Anything, "joao@example.com").
		Return(nil, fmt.Errorf("user: %w", apperrors.ErrRecordNotFound))
	env.users.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.users.On("UpdateLastSignIn", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.profiles.On("Get", mock.Anything, mock.Anything).Return(&model.Profile{Role: model.RoleDoctor}, nil)
	env.sessions.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	session, redirect, err := env.svc.ExchangeOAuthCode(context.Background(), "code-1", state)
	require.NoError(t, err)
	assert.Equal(t, "http://app.test/dashboard", redirect)
	assert.Equal(t, "code-1", env.oauth.lastCode)
	assert.Equal(t, model.AuthProviderGoogle, session.User.Provider)
	assert.True(t, session.User.EmailConfirmed())

	profile := env.users.Calls[1].Arguments.Get(2).(*model.Profile)
	assert.Equal(t, "João Silva", profile.FullName)
}

func TestOAuthRejectsTamperedState(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.svc.ExchangeOAuthCode(context.Background(), "code", "not-a-sealed-state")
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestOAuthRejectsExpiredState(t *testing.T) {
	env := newTestEnv(t)
	authURL, err := env.svc.SignInWithOAuth(context.Background(), "")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, _, err = env.svc.ExchangeOAuthCode(context.Background(), "code", u.Query().Get("state"))
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestAuthEventPayload(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	env.svc.publish(context.Background(), model.AuthEventUserUpdated, userID, uuid.Nil)

	msgs := env.broker.published["practice.auth."+userID.String()]
	require.Len(t, msgs, 1)
	data, err := json.Marshal(msgs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"USER_UPDATED"`)
}
