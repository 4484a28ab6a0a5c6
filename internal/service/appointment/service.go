package appointment

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/notification"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/format"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/spreadsheet"
)

var errShortName = apperrors.Validation("patient_name must have at least 2 characters")

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	outbox   repository.OutboxRepository
	notifier notification.Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository, outbox repository.OutboxRepository,
	notifier notification.Notifier, log *logger.Logger) *Service {
	return &Service{repo: repo, patients: patients, outbox: outbox, notifier: notifier, logger: log, now: time.Now}
}

// List returns the doctor's appointments ordered by date and time.
func (s *Service) List(ctx context.Context, filter *model.AppointmentFilter) ([]model.AppointmentView, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]model.AppointmentView, 0, len(rows))
	for _, a := range rows {
		views = append(views, model.NewAppointmentView(a))
	}
	return views, nil
}

func (s *Service) get(ctx context.Context, doctorID, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, err
	}
	if a.DoctorID != doctorID {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return a, nil
}

// checkPatient hides patients of other doctors behind the same not-found as unknown ids.
func (s *Service) checkPatient(ctx context.Context, doctorID, patientID uuid.UUID) error {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NotFound("patient", err)
		}
		return err
	}
	if p.DoctorID != doctorID {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

// Create inserts a scheduled appointment, then sends the confirmation and
// reminder notifications. Notification failures do not undo the insert.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreateAppointmentRequest) (*model.AppointmentWrite, error) {
	name, ok := format.Name(req.PatientName)
	if !ok {
		return nil, errShortName
	}
	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}
	if req.PatientID != nil {
		if err := s.checkPatient(ctx, doctorID, *req.PatientID); err != nil {
			return nil, err
		}
	}

	a := &model.Appointment{
		Base:             model.Base{ID: uuid.New()},
		DoctorID:         doctorID,
		PatientID:        req.PatientID,
		PatientName:      name,
		PatientEmail:     req.PatientEmail,
		PatientPhone:     format.PhonePtr(req.PatientPhone),
		Date:             date,
		Time:             req.Time,
		Duration:         req.Duration,
		Type:             req.Type,
		Reason:           req.Reason,
		Location:         req.Location,
		ConsultationMode: req.ConsultationMode,
		Notes:            req.Notes,
		Status:           model.AppointmentStatusScheduled,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.notify(ctx, a, model.NotificationTypeAppointmentConfirmation, "Consulta agendada",
		fmt.Sprintf("Consulta com %s agendada para %s.", a.PatientName, when(a)), model.NotificationPriorityNormal)
	s.notify(ctx, a, model.NotificationTypeAppointmentReminder, "Lembrete de consulta",
		fmt.Sprintf("Lembrete: %s com %s em %s.", model.AppointmentTypeLabel(a.Type), a.PatientName, when(a)), model.NotificationPriorityNormal)
	s.record(ctx, model.EventAppointmentCreated, a)

	return s.refetch(ctx, a)
}

// Update applies the non-nil fields. Cancelled appointments are final.
func (s *Service) Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.AppointmentWrite, error) {
	a, err := s.get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == model.AppointmentStatusCancelled {
		return nil, apperrors.Conflict("cancelled appointments cannot be changed", nil)
	}

	if req.PatientName != nil {
		name, ok := format.Name(*req.PatientName)
		if !ok {
			return nil, errShortName
		}
		a.PatientName = name
	}
	if req.PatientEmail != nil {
		a.PatientEmail = req.PatientEmail
	}
	if req.PatientPhone != nil {
		a.PatientPhone = format.PhonePtr(req.PatientPhone)
	}
	if req.Date != nil {
		if a.Date, err = time.Parse(model.DateLayout, *req.Date); err != nil {
			return nil, apperrors.Validation("date must be YYYY-MM-DD")
		}
	}
	if req.Time != nil {
		a.Time = *req.Time
	}
	if req.Duration != nil {
		a.Duration = *req.Duration
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.Reason != nil {
		a.Reason = req.Reason
	}
	if req.Location != nil {
		a.Location = req.Location
	}
	if req.ConsultationMode != nil {
		a.ConsultationMode = *req.ConsultationMode
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	if req.Status != nil {
		a.Status = *req.Status
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, model.EventAppointmentUpdated, a)
	return s.refetch(ctx, a)
}

// Cancel keeps the row and stamps who cancelled it and when.
func (s *Service) Cancel(ctx context.Context, doctorID, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.AppointmentWrite, error) {
	a, err := s.get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case model.AppointmentStatusCancelled:
		return nil, apperrors.Conflict("appointment is already cancelled", nil)
	case model.AppointmentStatusCompleted:
		return nil, apperrors.Conflict("completed appointments cannot be cancelled", nil)
	}

	now := s.now()
	if err := s.repo.Cancel(ctx, a.ID, doctorID, now, req.Reason); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, err
	}
	a.Status = model.AppointmentStatusCancelled
	a.CancelledBy = &doctorID
	a.CancelledAt = &now
	a.CancellationReason = req.Reason

	s.notify(ctx, a, model.NotificationTypeAppointmentCancellation, "Consulta cancelada",
		fmt.Sprintf("A consulta com %s em %s foi cancelada.", a.PatientName, when(a)), model.NotificationPriorityHigh)
	s.record(ctx, model.EventAppointmentCanceled, a)

	return s.refetch(ctx, a)
}

// Conflicts lists the doctor's non-cancelled appointments on the same day
// whose [time, time+duration) overlaps the candidate slot.
func (s *Service) Conflicts(ctx context.Context, doctorID uuid.UUID, q *model.ConflictQuery) ([]model.AppointmentView, error) {
	date, err := time.Parse(model.DateLayout, q.Date)
	if err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}
	start, err := minutes(q.Time)
	if err != nil {
		return nil, apperrors.Validation("time must be HH:MM")
	}
	end := start + q.Duration

	rows, err := s.repo.List(ctx, &model.AppointmentFilter{DoctorID: doctorID, Date: &date})
	if err != nil {
		return nil, err
	}

	conflicts := []model.AppointmentView{}
	for _, a := range rows {
		if a.Status == model.AppointmentStatusCancelled || (q.ExcludeID != nil && a.ID == *q.ExcludeID) {
			continue
		}
		aStart, err := minutes(a.Time)
		if err != nil {
			continue
		}
		if start < aStart+a.Duration && aStart < end {
			conflicts = append(conflicts, model.NewAppointmentView(a))
		}
	}
	return conflicts, nil
}

// Export writes the filtered list as an XLSX workbook.
func (s *Service) Export(ctx context.Context, filter *model.AppointmentFilter, w io.Writer) error {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return err
	}
	out := make([][]interface{}, 0, len(rows))
	for _, a := range rows {
		out = append(out, []interface{}{
			a.Date.Format("02/01/2006"),
			a.Time,
			a.Duration,
			a.PatientName,
			model.AppointmentTypeLabel(a.Type),
			model.ConsultationModeLabel(a.ConsultationMode),
			model.AppointmentStatusLabel(a.Status),
			spreadsheet.Deref(a.Reason),
			spreadsheet.Deref(a.Location),
		})
	}
	return spreadsheet.Write(w, "Agenda", []string{
		"Data", "Horário", "Duração (min)", "Paciente", "Tipo", "Modalidade", "Status", "Motivo", "Local",
	}, out)
}

func (s *Service) refetch(ctx context.Context, a *model.Appointment) (*model.AppointmentWrite, error) {
	list, err := s.List(ctx, &model.AppointmentFilter{DoctorID: a.DoctorID})
	if err != nil {
		return nil, err
	}
	return &model.AppointmentWrite{Appointment: model.NewAppointmentView(a), Appointments: list}, nil
}

func (s *Service) notify(ctx context.Context, a *model.Appointment, typ model.NotificationType, title, message string, priority model.NotificationPriority) {
	_, err := s.notifier.Notify(ctx, &model.NewNotification{
		UserID:   a.DoctorID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Priority: priority,
		Channel:  model.NotificationChannelInApp,
		Metadata: map[string]interface{}{
			"appointment_id": a.ID.String(),
			"date":           a.Date.Format(model.DateLayout),
			"time":           a.Time,
		},
	})
	if err != nil {
		s.logger.Warn(err, "failed to send appointment notification", "appointment_id", a.ID, "type", string(typ))
	}
}

// record queues the change for the broker. It runs after the write, outside its transaction.
func (s *Service) record(ctx context.Context, eventType string, a *model.Appointment) {
	event, err := model.NewOutboxEvent(eventType, model.AppointmentChange{DoctorID: a.DoctorID, Appointment: model.NewAppointmentView(a)})
	if err == nil {
		err = s.outbox.Create(ctx, event)
	}
	if err != nil {
		s.logger.Warn(err, "failed to record appointment event", "appointment_id", a.ID, "event", eventType)
	}
}

func when(a *model.Appointment) string {
	return a.Date.Format("02/01/2006") + " às " + a.Time
}

func minutes(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}
