package validator

import (
	"testing"
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patientForm struct {
	FullName  string       `json:"full_name" validate:"required,name"`
	BirthDate string       `json:"birth_date" validate:"required,datetime=2006-01-02,notfuture"`
	Gender    model.Gender `json:"gender" validate:"required,oneof=masculino feminino outro nao_informado"`
	Phone     string       `json:"phone" validate:"omitempty,phone"`
}

func fixedNow(t *testing.T, day string) {
	t.Helper()
	d, err := time.Parse(model.DateLayout, day)
	require.NoError(t, err)
	prev := now
	now = func() time.Time { return d.Add(15 * time.Hour) }
	t.Cleanup(func() { now = prev })
}

func TestPatientFormRules(t *testing.T) {
	fixedNow(t, "2024-06-15")
	v := New()

	valid := patientForm{FullName: "Ana", BirthDate: "2000-06-15", Gender: model.GenderFemale, Phone: "(11) 99999-8888"}
	assert.NoError(t, v.Struct(valid))

	tests := []struct {
		name  string
		form  patientForm
		field string
	}{
		{"short name", patientForm{FullName: "A", BirthDate: "2000-06-15", Gender: model.GenderFemale}, "full_name"},
		{"padded short name", patientForm{FullName: " a ", BirthDate: "2000-06-15", Gender: model.GenderFemale}, "full_name"},
		{"birth date tomorrow", patientForm{FullName: "Ana", BirthDate: "2024-06-16", Gender: model.GenderFemale}, "birth_date"},
		{"missing gender", patientForm{FullName: "Ana", BirthDate: "2000-06-15"}, "gender"},
		{"bad gender", patientForm{FullName: "Ana", BirthDate: "2000-06-15", Gender: "x"}, "gender"},
		{"bad phone", patientForm{FullName: "Ana", BirthDate: "2000-06-15", Gender: model.GenderOther, Phone: "12345"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			require.Error(t, err)
			msgs := Messages(err)
			assert.Contains(t, msgs, tt.field)
		})
	}
}

func TestBirthDateTodayIsAccepted(t *testing.T) {
	fixedNow(t, "2024-06-15")
	v := New()

	form := patientForm{FullName: "Bebê", BirthDate: "2024-06-15", Gender: model.GenderNotInformed}
	assert.NoError(t, v.Struct(form))
}

func TestAppointmentTags(t *testing.T) {
	type slot struct {
		Time string `json:"time" validate:"hhmm"`
		Type string `json:"type" validate:"appointment_type"`
		Mode string `json:"mode" validate:"consultation_mode"`
	}
	v := New()

	assert.NoError(t, v.Struct(slot{Time: "09:30", Type: "retorno", Mode: "telemedicina"}))

	err := v.Struct(slot{Time: "24:00", Type: "cirurgia", Mode: "online"})
	require.Error(t, err)
	msgs := Messages(err)
	assert.Len(t, msgs, 3)
	assert.Equal(t, "must be a time in HH:MM format", msgs["time"])
}

func TestNotFutureUsesLocation(t *testing.T) {
	// 01:00 on the 16th in UTC is still the 15th in Sao Paulo.
	prev := now
	now = func() time.Time { return time.Date(2024, 6, 16, 1, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })

	saoPaulo := time.FixedZone("BRT", -3*60*60)
	local := New(WithLocation(saoPaulo))
	utc := New()

	form := patientForm{FullName: "Bebê", BirthDate: "2024-06-16", Gender: model.GenderNotInformed}
	assert.Error(t, local.Struct(form))
	assert.NoError(t, utc.Struct(form))
}
