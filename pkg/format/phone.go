package format

import (
	"regexp"
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	mobile11   = regexp.MustCompile(`^(\d{2})(\d{5})(\d{4})$`)
	landline10 = regexp.MustCompile(`^(\d{2})(\d{4})(\d{4})$`)
)

// Phone renders a Brazilian number with area code: 11 digits as
// (DD) DDDDD-DDDD, 10 digits as (DD) DDDD-DDDD. Anything else is returned unchanged.
func Phone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	switch len(digits) {
	case 11:
		return mobile11.ReplaceAllString(digits, "($1) $2-$3")
	case 10:
		return landline10.ReplaceAllString(digits, "($1) $2-$3")
	default:
		return raw
	}
}

// PhonePtr formats an optional phone without touching the input.
func PhonePtr(raw *string) *string {
	if raw == nil || *raw == "" {
		return raw
	}
	formatted := Phone(*raw)
	return &formatted
}
