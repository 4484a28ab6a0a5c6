package model

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthRequest types
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,name"`
	Role     Role   `json:"role" binding:"omitempty,oneof=doctor patient"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type PasswordResetRequest struct {
	Email      string `json:"email" binding:"required,email"`
	RedirectTo string `json:"redirect_to" binding:"omitempty,max=2048"`
}

type PasswordUpdateRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type ResendConfirmationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Session is returned on sign in, sign up (when confirmed) and refresh.
type Session struct {
	ID           uuid.UUID `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// AuthState is the reconciled view of the current identity.
// Profile is nil when it could not be loaded.
type AuthState struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
	Profile *Profile `json:"profile"`
}

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims represents JWT claims
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TokenType TokenType `json:"token_type"`
}

// UserToken kinds stored for email flows.
type UserTokenKind string

const (
	UserTokenConfirmation UserTokenKind = "confirmation"
	UserTokenRecovery     UserTokenKind = "recovery"
)

type AuthEventType string

const (
	AuthEventSignedIn         AuthEventType = "SIGNED_IN"
	AuthEventSignedOut        AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed   AuthEventType = "TOKEN_REFRESHED"
	AuthEventPasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
	AuthEventUserUpdated      AuthEventType = "USER_UPDATED"
)

// AuthEvent is published on every auth state change.
type AuthEvent struct {
	Event     AuthEventType `json:"event"`
	UserID    uuid.UUID     `json:"user_id"`
	SessionID uuid.UUID     `json:"session_id,omitempty"`
	At        time.Time     `json:"at"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionRevoked     = errors.New("session revoked")
)
