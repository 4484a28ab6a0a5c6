package model

import "github.com/google/uuid"

type DashboardStats struct {
	DoctorID               uuid.UUID                 `json:"doctor_id"`
	Range                  DateRange                 `json:"range"`
	PatientsByStatus       map[PatientStatus]int     `json:"patients_by_status"`
	AppointmentsByStatus   map[AppointmentStatus]int `json:"appointments_by_status"`
	ConsultationsThisMonth int                       `json:"consultations_this_month"`
	ReportsGenerated       int                       `json:"reports_generated"`
}

// StatusCount is a scan target for GROUP BY status queries.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}
