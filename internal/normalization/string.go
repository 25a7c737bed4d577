package normalization

import (
	"strings"
	"unicode"
)

// CollapseWhitespace folds every run of Unicode whitespace (NBSP included)
// into a single space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var headerStripper = strings.NewReplacer(
	`"`, "",
	`'`, "",
	"“", "",
	"”", "",
	"‘", "",
	"’", "",
	"[", "",
	"]", "",
)

// NormalizeHeader is the comparison form of a header or item text.
func NormalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = headerStripper.Replace(s)
	return CollapseWhitespace(s)
}

// Slugify keeps letters, digits, '_', '-' and whitespace, turns whitespace
// runs into '_' and truncates to max runes (max <= 0 means no limit).
func Slugify(s string, max int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteRune('_')
			}
			inSpace = true
			continue
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_', r == '-':
			b.WriteRune(r)
			inSpace = false
		}
	}
	out := b.String()
	if max > 0 {
		if runes := []rune(out); len(runes) > max {
			out = string(runes[:max])
		}
	}
	return out
}
