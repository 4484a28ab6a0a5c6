package format

import (
	"strings"
	"unicode/utf8"
)

// MinNameLength is the shortest accepted person name, counted in runes after trimming.
const MinNameLength = 2

// Name trims surrounding whitespace and reports whether what remains is long enough.
func Name(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	return name, utf8.RuneCountInString(name) >= MinNameLength
}
