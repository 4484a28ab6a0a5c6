package model

import (
	"time"

	"github.com/google/uuid"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
	PatientStatusArchived PatientStatus = "archived"
)

type Gender string

const (
	GenderMale        Gender = "masculino"
	GenderFemale      Gender = "feminino"
	GenderOther       Gender = "outro"
	GenderNotInformed Gender = "nao_informado"
)

type Patient struct {
	Base
	DoctorID         uuid.UUID     `json:"doctor_id" db:"doctor_id"`
	FullName         string        `json:"full_name" db:"full_name"`
	BirthDate        time.Time     `json:"birth_date" db:"birth_date"`
	Gender           Gender        `json:"gender" db:"gender"`
	Email            *string       `json:"email,omitempty" db:"email"`
	Phone            *string       `json:"phone,omitempty" db:"phone"`
	Address          *string       `json:"address,omitempty" db:"address"`
	EmergencyContact *string       `json:"emergency_contact,omitempty" db:"emergency_contact"`
	ChiefComplaint   *string       `json:"chief_complaint,omitempty" db:"chief_complaint"`
	FamilyHistory    *string       `json:"family_history,omitempty" db:"family_history"`
	Medications      *string       `json:"medications,omitempty" db:"medications"`
	Allergies        *string       `json:"allergies,omitempty" db:"allergies"`
	Notes            *string       `json:"notes,omitempty" db:"notes"`
	Status           PatientStatus `json:"status" db:"status"`

	// Age is derived from BirthDate when the record is returned.
	Age int `json:"age" db:"-"`
}

type CreatePatientRequest struct {
	FullName         string  `json:"full_name" binding:"required,name,max=200"`
	BirthDate        string  `json:"birth_date" binding:"required,datetime=2006-01-02,notfuture"`
	Gender           Gender  `json:"gender" binding:"required,oneof=masculino feminino outro nao_informado"`
	Email            *string `json:"email" binding:"omitempty,email"`
	Phone            *string `json:"phone" binding:"omitempty,phone"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
	ChiefComplaint   *string `json:"chief_complaint"`
	FamilyHistory    *string `json:"family_history"`
	Medications      *string `json:"medications"`
	Allergies        *string `json:"allergies"`
	Notes            *string `json:"notes"`
}

type UpdatePatientRequest struct {
	FullName         *string        `json:"full_name" binding:"omitempty,name,max=200"`
	BirthDate        *string        `json:"birth_date" binding:"omitempty,datetime=2006-01-02,notfuture"`
	Gender           *Gender        `json:"gender" binding:"omitempty,oneof=masculino feminino outro nao_informado"`
	Email            *string        `json:"email" binding:"omitempty,email"`
	Phone            *string        `json:"phone" binding:"omitempty,phone"`
	Address          *string        `json:"address"`
	EmergencyContact *string        `json:"emergency_contact"`
	ChiefComplaint   *string        `json:"chief_complaint"`
	FamilyHistory    *string        `json:"family_history"`
	Medications      *string        `json:"medications"`
	Allergies        *string        `json:"allergies"`
	Notes            *string        `json:"notes"`
	Status           *PatientStatus `json:"status" binding:"omitempty,oneof=active inactive archived"`
}

type PatientFilter struct {
	DoctorID uuid.UUID
	Search   string        `form:"search"`
	Status   PatientStatus `form:"status" binding:"omitempty,oneof=active inactive archived"`
}
