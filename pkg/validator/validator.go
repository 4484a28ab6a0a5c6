package validator

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/format"
)

var (
	phonePattern = regexp.MustCompile(`^\(?\d{2}\)?\s?\d{4,5}-?\d{4}$`)
	hhmmPattern  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	// now is swapped in tests.
	now = time.Now
)

type options struct {
	loc *time.Location
}

type Option func(*options)

// WithLocation makes date tags judge "today" in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// Register installs the custom tags on v and reports fields by their json name.
func Register(v *validator.Validate, opts ...Option) error {
	o := options{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"notfuture":         notFuture(o.loc),
		"name":              validName,
		"phone":             phone,
		"hhmm":              hhmm,
		"appointment_type":  inTable(model.AppointmentTypeLabels),
		"consultation_mode": inTable(model.ConsultationModeLabels),
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// New returns a validator with the custom tags registered.
func New(opts ...Option) *validator.Validate {
	v := validator.New()
	if err := Register(v, opts...); err != nil {
		panic(err)
	}
	return v
}

// notFuture accepts a YYYY-MM-DD string or a time.Time not after today in loc.
func notFuture(loc *time.Location) validator.Func {
	return func(fl validator.FieldLevel) bool {
		today := now().In(loc).Format(model.DateLayout)
		switch value := fl.Field().Interface().(type) {
		case string:
			d, err := time.Parse(model.DateLayout, value)
			if err != nil {
				return false
			}
			return d.Format(model.DateLayout) <= today
		case time.Time:
			return value.In(loc).Format(model.DateLayout) <= today
		default:
			return false
		}
	}
}

// validName counts runes after trimming, so padding cannot satisfy the minimum.
func validName(fl validator.FieldLevel) bool {
	_, ok := format.Name(fl.Field().String())
	return ok
}

func phone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func hhmm(fl validator.FieldLevel) bool {
	return hhmmPattern.MatchString(fl.Field().String())
}

func inTable(table map[string]string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, ok := table[fl.Field().String()]
		return ok
	}
}

// Messages turns validation errors into field -> message pairs.
func Messages(err error) map[string]string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = message(e)
	}
	return out
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + e.Param() + " characters"
	case "max":
		return "must have at most " + e.Param() + " characters"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + e.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "notfuture":
		return "cannot be in the future"
	case "name":
		return "must have at least 2 characters besides spaces"
	case "phone":
		return "must be a phone number like (11) 99999-8888"
	case "hhmm":
		return "must be a time in HH:MM format"
	case "appointment_type":
		return "unknown appointment type"
	case "consultation_mode":
		return "unknown consultation mode"
	default:
		return "is invalid"
	}
}
