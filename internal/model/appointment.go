package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "agendado"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmado"
	AppointmentStatusInProgress AppointmentStatus = "em_andamento"
	AppointmentStatusCompleted  AppointmentStatus = "concluido"
	AppointmentStatusCancelled  AppointmentStatus = "cancelado"
	AppointmentStatusNoShow     AppointmentStatus = "faltou"
)

type Appointment struct {
	Base
	DoctorID           uuid.UUID         `json:"doctor_id" db:"doctor_id"`
	PatientID          *uuid.UUID        `json:"patient_id,omitempty" db:"patient_id"`
	PatientName        string            `json:"patient_name" db:"patient_name"`
	PatientEmail       *string           `json:"patient_email,omitempty" db:"patient_email"`
	PatientPhone       *string           `json:"patient_phone,omitempty" db:"patient_phone"`
	Date               time.Time         `json:"date" db:"date"`
	Time               string            `json:"time" db:"time"`
	Duration           int               `json:"duration" db:"duration"`
	Type               string            `json:"type" db:"type"`
	Reason             *string           `json:"reason,omitempty" db:"reason"`
	Location           *string           `json:"location,omitempty" db:"location"`
	ConsultationMode   string            `json:"consultation_mode" db:"consultation_mode"`
	Notes              *string           `json:"notes,omitempty" db:"notes"`
	Status             AppointmentStatus `json:"status" db:"status"`
	CancelledBy        *uuid.UUID        `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string           `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
}

// Start combines Date and Time in the given location.
func (a *Appointment) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" 15:04", a.Date.Format(DateLayout)+" "+a.Time, loc)
}

type CreateAppointmentRequest struct {
	PatientID        *uuid.UUID `json:"patient_id"`
	PatientName      string     `json:"patient_name" binding:"required,name,max=200"`
	PatientEmail     *string    `json:"patient_email" binding:"omitempty,email"`
	PatientPhone     *string    `json:"patient_phone" binding:"omitempty,phone"`
	Date             string     `json:"date" binding:"required,datetime=2006-01-02"`
	Time             string     `json:"time" binding:"required,hhmm"`
	Duration         int        `json:"duration" binding:"required,min=5,max=480"`
	Type             string     `json:"type" binding:"required,appointment_type"`
	Reason           *string    `json:"reason" binding:"omitempty,max=500"`
	Location         *string    `json:"location" binding:"omitempty,max=200"`
	ConsultationMode string     `json:"consultation_mode" binding:"required,consultation_mode"`
	Notes            *string    `json:"notes"`
}

type UpdateAppointmentRequest struct {
	PatientName      *string            `json:"patient_name" binding:"omitempty,name,max=200"`
	PatientEmail     *string            `json:"patient_email" binding:"omitempty,email"`
	PatientPhone     *string            `json:"patient_phone" binding:"omitempty,phone"`
	Date             *string            `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time             *string            `json:"time" binding:"omitempty,hhmm"`
	Duration         *int               `json:"duration" binding:"omitempty,min=5,max=480"`
	Type             *string            `json:"type" binding:"omitempty,appointment_type"`
	Reason           *string            `json:"reason" binding:"omitempty,max=500"`
	Location         *string            `json:"location" binding:"omitempty,max=200"`
	ConsultationMode *string            `json:"consultation_mode" binding:"omitempty,consultation_mode"`
	Notes            *string            `json:"notes"`
	Status           *AppointmentStatus `json:"status" binding:"omitempty,oneof=agendado confirmado em_andamento concluido faltou"`
}

type CancelAppointmentRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

type ConflictQuery struct {
	Date      string     `form:"date" binding:"required,datetime=2006-01-02"`
	Time      string     `form:"time" binding:"required,hhmm"`
	Duration  int        `form:"duration" binding:"required,min=5,max=480"`
	ExcludeID *uuid.UUID `form:"-"`
}

type AppointmentFilter struct {
	DoctorID uuid.UUID
	Date     *time.Time
	From     *time.Time
	To       *time.Time
	Status   AppointmentStatus
}

// AppointmentView is the list-row shape served to the calendar.
type AppointmentView struct {
	ID               uuid.UUID         `json:"id"`
	PatientID        *uuid.UUID        `json:"patient_id,omitempty"`
	PatientName      string            `json:"patient_name"`
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	Duration         int               `json:"duration"`
	Type             string            `json:"type"`
	TypeLabel        string            `json:"type_label"`
	ConsultationMode string            `json:"consultation_mode"`
	ModeLabel        string            `json:"mode_label"`
	Status           AppointmentStatus `json:"status"`
	StatusLabel      string            `json:"status_label"`
	Reason           *string           `json:"reason,omitempty"`
	Location         *string           `json:"location,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
}

// AppointmentWrite is returned by every write: the affected row plus the refreshed list.
type AppointmentWrite struct {
	Appointment  AppointmentView   `json:"appointment"`
	Appointments []AppointmentView `json:"appointments"`
}

// AppointmentChange is the outbox payload of an appointment write.
type AppointmentChange struct {
	DoctorID    uuid.UUID       `json:"doctor_id"`
	Appointment AppointmentView `json:"appointment"`
}

// NewAppointmentView maps a row through the label tables.
func NewAppointmentView(a *Appointment) AppointmentView {
	return AppointmentView{
		ID:               a.ID,
		PatientID:        a.PatientID,
		PatientName:      a.PatientName,
		Date:             a.Date.Format(DateLayout),
		Time:             a.Time,
		Duration:         a.Duration,
		Type:             a.Type,
		TypeLabel:        AppointmentTypeLabel(a.Type),
		ConsultationMode: a.ConsultationMode,
		ModeLabel:        ConsultationModeLabel(a.ConsultationMode),
		Status:           a.Status,
		StatusLabel:      AppointmentStatusLabel(a.Status),
		Reason:           a.Reason,
		Location:         a.Location,
		CancelledAt:      a.CancelledAt,
	}
}
