package textutil

import (
	"strings"
	"unicode/utf16"
)

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// ASCII letters are lowercased, digits and hyphens/underscores are kept, every
// other character becomes one underscore per UTF-16 code unit, so a character
// outside the Basic Multilingual Plane such as an emoji becomes "__". Nothing
// is trimmed. Filenames stay identical to those of earlier backups, which
// counted characters in UTF-16.
func SanitizeToken(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteString(strings.Repeat("_", max(utf16.RuneLen(r), 1)))
		}
	}
	return b.String()
}
