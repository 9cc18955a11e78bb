// Package slug defines the form of session names: lowercase ASCII letters,
// digits and single dashes, at most MaxLen bytes. Names end up in report file
// names and in the history database.
package slug

import "strings"

const MaxLen = 48

// Make folds input into slug form. Runs of other characters become one dash;
// an input with nothing usable becomes "session".
func Make(input string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(input) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
		if b.Len() >= MaxLen {
			break
		}
	}
	s := strings.TrimRight(b.String()[:min(b.Len(), MaxLen)], "-")
	if s == "" {
		return "session"
	}
	return s
}

// Valid reports whether input is already in slug form.
func Valid(input string) bool {
	return input != "" && len(input) <= MaxLen && Make(input) == input
}
