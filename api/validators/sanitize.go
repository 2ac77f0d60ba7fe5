package validators

import (
	"strings"
	"unicode"
)

// SanitizeText collapses whitespace runs to single spaces, drops control
// characters, and cuts the result to maxRunes characters when maxRunes is positive.
func SanitizeText(input string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(input))
	count := 0
	pendingSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = count > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			if maxRunes > 0 && count+1 >= maxRunes {
				break
			}
			b.WriteByte(' ')
			count++
			pendingSpace = false
		}
		if maxRunes > 0 && count >= maxRunes {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
