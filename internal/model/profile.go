package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

type ThemePreference string

const (
	ThemeLight  ThemePreference = "light"
	ThemeDark   ThemePreference = "dark"
	ThemeSystem ThemePreference = "system"
)

// Profile is the user's extended record, keyed by the auth user id.
type Profile struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	FullName        string          `json:"full_name" db:"full_name"`
	Role            Role            `json:"role" db:"role"`
	CRM             *string         `json:"crm,omitempty" db:"crm"`
	Specialty       *string         `json:"specialty,omitempty" db:"specialty"`
	ClinicName      *string         `json:"clinic_name,omitempty" db:"clinic_name"`
	CustomTitle     *string         `json:"custom_title,omitempty" db:"custom_title"`
	Phone           *string         `json:"phone,omitempty" db:"phone"`
	ThemePreference ThemePreference `json:"theme_preference" db:"theme_preference"`
	CompactMode     bool            `json:"compact_mode" db:"compact_mode"`
	FirstLoginAt    *time.Time      `json:"first_login_at,omitempty" db:"first_login_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// DisplayTitle is the custom title when set, otherwise "Dr(a)." for doctors.
func (p *Profile) DisplayTitle() string {
	if p.CustomTitle != nil && *p.CustomTitle != "" {
		return *p.CustomTitle
	}
	if p.Role == RoleDoctor {
		return "Dr(a)."
	}
	return ""
}

type UpdateProfileRequest struct {
	FullName    *string `json:"full_name" binding:"omitempty,name"`
	CRM         *string `json:"crm" binding:"omitempty,max=20"`
	Specialty   *string `json:"specialty" binding:"omitempty,max=100"`
	ClinicName  *string `json:"clinic_name" binding:"omitempty,max=150"`
	CustomTitle *string `json:"custom_title" binding:"omitempty,max=50"`
	Phone       *string `json:"phone" binding:"omitempty,phone"`
}

type UpdatePreferencesRequest struct {
	ThemePreference *ThemePreference `json:"theme_preference" binding:"omitempty,oneof=light dark system"`
	CompactMode     *bool            `json:"compact_mode"`
	CustomTitle     *string          `json:"custom_title" binding:"omitempty,max=50"`
}
