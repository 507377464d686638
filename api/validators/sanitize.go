package validators

import (
	"strings"
	"unicode"
)

// SanitizeSearch normalises a free-text product search term: control
// characters are dropped, whitespace runs collapse to one space and the
// result is cut to maxRunes runes (0 means no limit).
func SanitizeSearch(input string, maxRunes int) string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	term := []rune(strings.Join(fields, " "))
	if maxRunes > 0 && len(term) > maxRunes {
		term = term[:maxRunes]
	}
	return strings.TrimSpace(string(term))
}
