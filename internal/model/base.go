package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateRange filters rows on a date column, both bounds inclusive.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether d falls in the range, compared by calendar day.
func (r DateRange) Contains(d time.Time) bool {
	day := d.Format(DateLayout)
	return day >= r.From.Format(DateLayout) && day <= r.To.Format(DateLayout)
}
