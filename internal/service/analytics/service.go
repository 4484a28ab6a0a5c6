package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const (
	cacheTTL        = time.Minute
	cleanupInterval = 5 * time.Minute
)

type Dependencies struct {
	Patients      repository.PatientRepository
	Appointments  repository.AppointmentRepository
	Consultations repository.ConsultationRepository
	Reports       repository.ReportRepository
	Location      *time.Location
}

// Service computes dashboard counts. Results are cached per doctor and range.
type Service struct {
	patients      repository.PatientRepository
	appointments  repository.AppointmentRepository
	consultations repository.ConsultationRepository
	reports       repository.ReportRepository
	cache         *cache.Cache
	loc           *time.Location
	now           func() time.Time
}

func NewService(deps Dependencies) *Service {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		patients:      deps.Patients,
		appointments:  deps.Appointments,
		consultations: deps.Consultations,
		reports:       deps.Reports,
		cache:         cache.New(cacheTTL, cleanupInterval),
		loc:           loc,
		now:           time.Now,
	}
}

// Dashboard returns the counts for doctorID. A zero range means the current month.
func (s *Service) Dashboard(ctx context.Context, doctorID uuid.UUID, r model.DateRange) (*model.DashboardStats, error) {
	now := s.now().In(s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	if r.From.IsZero() {
		r.From = monthStart
	}
	if r.To.IsZero() {
		r.To = monthStart.AddDate(0, 1, -1)
	}
	if r.To.Before(r.From) {
		return nil, apperrors.Validation("range end is before range start")
	}

	key := fmt.Sprintf("%s:%s:%s", doctorID, r.From.Format(model.DateLayout), r.To.Format(model.DateLayout))
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.DashboardStats), nil
	}

	stats := &model.DashboardStats{
		DoctorID:             doctorID,
		Range:                r,
		PatientsByStatus:     map[model.PatientStatus]int{},
		AppointmentsByStatus: map[model.AppointmentStatus]int{},
	}

	patientCounts, err := s.patients.CountByStatus(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	for _, c := range patientCounts {
		stats.PatientsByStatus[model.PatientStatus(c.Status)] = c.Count
	}

	appointmentCounts, err := s.appointments.CountByStatus(ctx, doctorID, r)
	if err != nil {
		return nil, err
	}
	for _, c := range appointmentCounts {
		stats.AppointmentsByStatus[model.AppointmentStatus(c.Status)] = c.Count
	}

	if stats.ConsultationsThisMonth, err = s.consultations.CountSince(ctx, doctorID, monthStart); err != nil {
		return nil, err
	}
	if stats.ReportsGenerated, err = s.reports.CountByDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	s.cache.Set(key, stats, cache.DefaultExpiration)
	return stats, nil
}
