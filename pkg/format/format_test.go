package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"mobile digits", "11999998888", "(11) 99999-8888"},
		{"landline digits", "1133334444", "(11) 3333-4444"},
		{"already formatted", "(11) 99999-8888", "(11) 99999-8888"},
		{"with separators", "11 99999-8888", "(11) 99999-8888"},
		{"too short", "99998888", "99998888"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.raw))
		})
	}
}

func TestPhonePtr(t *testing.T) {
	assert.Nil(t, PhonePtr(nil))

	raw := "11999998888"
	got := PhonePtr(&raw)
	assert.Equal(t, "(11) 99999-8888", *got)
	assert.Equal(t, "11999998888", raw)
}

func TestAge(t *testing.T) {
	birth := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 23, Age(birth, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, Age(birth, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, Age(birth, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, Age(birth, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAgeLeapDay(t *testing.T) {
	birth := time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, Age(birth, time.Date(2005, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, Age(birth, time.Date(2005, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, Age(birth, time.Date(2008, 2, 29, 0, 0, 0, 0, time.UTC)))
}

func TestName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Maria", "Maria", true},
		{"  Jô  ", "Jô", true},
		{" a ", "a", false},
		{"   ", "", false},
		{"É", "É", false},
	}
	for _, tt := range tests {
		got, ok := Name(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}
