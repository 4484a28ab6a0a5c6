package format

import "time"

// Age returns whole years between birth and at, counting the birthday itself.
// A Feb 29 birthday is reached on Mar 1 in non-leap years.
func Age(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
