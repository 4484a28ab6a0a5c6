package model

import (
	"time"

	"github.com/google/uuid"
)

type AuthProvider string

const (
	AuthProviderEmail  AuthProvider = "email"
	AuthProviderGoogle AuthProvider = "google"
)

// User is the auth identity. Extended data lives in Profile under the same id.
type User struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	Email            string       `json:"email" db:"email"`
	PasswordHash     string       `json:"-" db:"password_hash"`
	Provider         AuthProvider `json:"provider" db:"provider"`
	EmailConfirmedAt *time.Time   `json:"email_confirmed_at,omitempty" db:"email_confirmed_at"`
	LastSignInAt     *time.Time   `json:"last_sign_in_at,omitempty" db:"last_sign_in_at"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

func (u *User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil
}
