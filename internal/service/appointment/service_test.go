package appointment

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository/mocks"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

type fakeNotifier struct{ mock.Mock }

func (n *fakeNotifier) Notify(ctx context.Context, in *model.NewNotification) (*model.Notification, error) {
	args := n.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

type testEnv struct {
	svc      *Service
	repo     *mocks.AppointmentRepository
	patients *mocks.PatientRepository
	outbox   *mocks.OutboxRepository
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:     &mocks.AppointmentRepository{},
		patients: &mocks.PatientRepository{},
		outbox:   &mocks.OutboxRepository{},
		notifier: &fakeNotifier{},
	}
	env.svc = NewService(env.repo, env.patients, env.outbox, env.notifier, logger.Nop())
	env.svc.now = func() time.Time { return time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC) }
	env.outbox.On("Create", mock.Anything, mock.Anything).Return(nil)
	return env
}

func day(s string) time.Time {
	d, _ := time.Parse(model.DateLayout, s)
	return d
}

func appt(doctorID uuid.UUID, date, hhmm string, duration int, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		Base:             model.Base{ID: uuid.New()},
		DoctorID:         doctorID,
		PatientName:      "Paciente " + hhmm,
		Date:             day(date),
		Time:             hhmm,
		Duration:         duration,
		Type:             "consulta",
		ConsultationMode: "presencial",
		Status:           status,
	}
}

func createRequest() *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientName:      "Ana Lima",
		Date:             "2024-05-20",
		Time:             "14:30",
		Duration:         30,
		Type:             "retorno",
		ConsultationMode: "telemedicina",
	}
}

func TestListMapsLabels(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()
	a := appt(doctorID, "2024-05-20", "09:00", 30, model.AppointmentStatusScheduled)
	a.Type = "urgencia"
	b := appt(doctorID, "2024-05-20", "10:00", 30, model.AppointmentStatusConfirmed)
	b.Type = "avaliacao"
	b.ConsultationMode = "domiciliar"
	env.repo.On("List", mock.Anything, mock.Anything).Return([]*model.Appointment{a, b}, nil)

	views, err := env.svc.List(context.Background(), &model.AppointmentFilter{DoctorID: doctorID})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Urgência", views[0].TypeLabel)
	assert.Equal(t, "Presencial", views[0].ModeLabel)
	assert.Equal(t, "Agendado", views[0].StatusLabel)
	assert.Equal(t, "2024-05-20", views[0].Date)
	assert.Equal(t, "avaliacao", views[1].TypeLabel)
	assert.Equal(t, "Domiciliar", views[1].ModeLabel)
}

func TestCreateSendsConfirmationAndReminder(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()

	env.repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Appointment")).Return(nil)
	env.repo.On("List", mock.Anything, &model.AppointmentFilter{DoctorID: doctorID}).Return([]*model.Appointment{}, nil)
	env.notifier.On("Notify", mock.Anything, mock.Anything).Return(&model.Notification{}, nil)

	res, err := env.svc.Create(context.Background(), doctorID, createRequest())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, res.Appointment.Status)
	assert.Equal(t, "Retorno", res.Appointment.TypeLabel)
	assert.NotNil(t, res.Appointments)

	require.Len(t, env.notifier.Calls, 2)
	first := env.notifier.Calls[0].Arguments.Get(1).(*model.NewNotification)
	second := env.notifier.Calls[1].Arguments.Get(1).(*model.NewNotification)
	assert.Equal(t, model.NotificationTypeAppointmentConfirmation, first.Type)
	assert.Equal(t, model.NotificationTypeAppointmentReminder, second.Type)
	assert.Equal(t, doctorID, first.UserID)
	assert.Contains(t, first.Message, "20/05/2024 às 14:30")

	env.outbox.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(e *model.OutboxEvent) bool {
		return e.EventType == model.EventAppointmentCreated
	}))
}

func TestCreateSurvivesNotificationFailure(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()
	created := appt(doctorID, "2024-05-20", "14:30", 30, model.AppointmentStatusScheduled)

	env.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.repo.On("List", mock.Anything, mock.Anything).Return([]*model.Appointment{created}, nil)
	env.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil, errors.New("notifications table locked"))

	res, err := env.svc.Create(context.Background(), doctorID, createRequest())
	require.NoError(t, err)
	assert.Len(t, res.Appointments, 1)
	env.repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel(t *testing.T) {
	doctorID := uuid.New()
	reason := "paciente viajou"

	tests := []struct {
		name     string
		status   model.AppointmentStatus
		wantCode apperrors.ErrorCode
	}{
		{"scheduled", model.AppointmentStatusScheduled, 0},
		{"confirmed", model.AppointmentStatusConfirmed, 0},
		{"already cancelled", model.AppointmentStatusCancelled, apperrors.ErrConflict},
		{"completed", model.AppointmentStatusCompleted, apperrors.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			a := appt(doctorID, "2024-05-20", "09:00", 30, tt.status)
			env.repo.On("Get", mock.Anything, a.ID).Return(a, nil)
			env.repo.On("Cancel", mock.Anything, a.ID, doctorID, env.svc.now(), &reason).Return(nil)
			env.repo.On("List", mock.Anything, mock.Anything).Return([]*model.Appointment{a}, nil)
			env.notifier.On("Notify", mock.Anything, mock.Anything).Return(&model.Notification{}, nil)

			res, err := env.svc.Cancel(context.Background(), doctorID, a.ID, &model.CancelAppointmentRequest{Reason: &reason})
			if tt.wantCode != 0 {
				appErr, ok := apperrors.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, appErr.Code)
				env.repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.AppointmentStatusCancelled, res.Appointment.Status)
			assert.NotNil(t, res.Appointment.CancelledAt)

			n := env.notifier.Calls[0].Arguments.Get(1).(*model.NewNotification)
			assert.Equal(t, model.NotificationTypeAppointmentCancellation, n.Type)
			assert.Equal(t, model.NotificationPriorityHigh, n.Priority)
		})
	}
}

func TestCancelOtherDoctorsAppointment(t *testing.T) {
	env := newTestEnv()
	a := appt(uuid.New(), "2024-05-20", "09:00", 30, model.AppointmentStatusScheduled)
	env.repo.On("Get", mock.Anything, a.ID).Return(a, nil)

	_, err := env.svc.Cancel(context.Background(), uuid.New(), a.ID, &model.CancelAppointmentRequest{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateIsPartial(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()
	a := appt(doctorID, "2024-05-20", "09:00", 30, model.AppointmentStatusScheduled)
	env.repo.On("Get", mock.Anything, a.ID).Return(a, nil)
	env.repo.On("Update", mock.Anything, a).Return(nil)
	env.repo.On("List", mock.Anything, mock.Anything).Return([]*model.Appointment{a}, nil)

	newTime := "10:15"
	confirmed := model.AppointmentStatusConfirmed
	res, err := env.svc.Update(context.Background(), doctorID, a.ID, &model.UpdateAppointmentRequest{Time: &newTime, Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, "10:15", res.Appointment.Time)
	assert.Equal(t, "2024-05-20", res.Appointment.Date)
	assert.Equal(t, 30, res.Appointment.Duration)
	assert.Equal(t, "Confirmado", res.Appointment.StatusLabel)
	env.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestUpdateCancelledIsConflict(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()
	a := appt(doctorID, "2024-05-20", "09:00", 30, model.AppointmentStatusCancelled)
	a.CancelledBy = &doctorID
	env.repo.On("Get", mock.Anything, a.ID).Return(a, nil)

	scheduled := model.AppointmentStatusScheduled
	_, err := env.svc.Update(context.Background(), doctorID, a.ID, &model.UpdateAppointmentRequest{Status: &scheduled})

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	env.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCreateRejectsPaddedShortName(t *testing.T) {
	env := newTestEnv()
	req := createRequest()
	req.PatientName = "  a "

	_, err := env.svc.Create(context.Background(), uuid.New(), req)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	env.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateChecksPatientOwnership(t *testing.T) {
	doctorID := uuid.New()
	mine, theirs, unknown := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name      string
		patientID uuid.UUID
		notFound  bool
	}{
		{"own patient", mine, false},
		{"another doctor's patient", theirs, true},
		{"unknown patient", unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.patients.On("Get", mock.Anything, mine).Return(&model.Patient{Base: model.Base{ID: mine}, DoctorID: doctorID}, nil)
			env.patients.On("Get", mock.Anything, theirs).Return(&model.Patient{Base: model.Base{ID: theirs}, DoctorID: uuid.New()}, nil)
			env.patients.On("Get", mock.Anything, unknown).Return(nil, apperrors.ErrRecordNotFound)
			env.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			env.repo.On("List", mock.Anything, mock.Anything).Return([]*model.Appointment{}, nil)
			env.notifier.On("Notify", mock.Anything, mock.Anything).Return(&model.Notification{}, nil)

			req := createRequest()
			req.PatientID = &tt.patientID
			_, err := env.svc.Create(context.Background(), doctorID, req)

			if !tt.notFound {
				require.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsNotFound(err))
			env.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestConflicts(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()
	early := appt(doctorID, "2024-05-20", "08:00", 60, model.AppointmentStatusScheduled)   // 08:00-09:00
	overlap := appt(doctorID, "2024-05-20", "09:30", 30, model.AppointmentStatusConfirmed) // 09:30-10:00
	cancelled := appt(doctorID, "2024-05-20", "09:15", 30, model.AppointmentStatusCancelled)
	self := appt(doctorID, "2024-05-20", "09:00", 45, model.AppointmentStatusScheduled)
	later := appt(doctorID, "2024-05-20", "10:00", 30, model.AppointmentStatusScheduled) // touches the end only

	env.repo.On("List", mock.Anything, mock.MatchedBy(func(f *model.AppointmentFilter) bool {
		return f.Date != nil && f.Date.Format(model.DateLayout) == "2024-05-20" && f.DoctorID == doctorID
	})).Return([]*model.Appointment{early, self, cancelled, overlap, later}, nil)

	conflicts, err := env.svc.Conflicts(context.Background(), doctorID, &model.ConflictQuery{
		Date: "2024-05-20", Time: "09:00", Duration: 60, ExcludeID: &self.ID,
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, overlap.ID, conflicts[0].ID)
}

func TestExport(t *testing.T) {
	env := newTestEnv()
	doctorID := uuid.New()
	env.repo.On("List", mock.Anything, mock.Anything).Return([]*model.Appointment{
		appt(doctorID, "2024-05-20", "09:00", 30, model.AppointmentStatusNoShow),
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, env.svc.Export(context.Background(), &model.AppointmentFilter{DoctorID: doctorID}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Agenda")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"20/05/2024", "09:00", "30", "Paciente 09:00", "Consulta", "Presencial", "Faltou"}, rows[1])
}
