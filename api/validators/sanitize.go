package validators

import "strings"

// SanitizeString collapses runs of whitespace in a search term and cuts it to
// maxLen runes, so a name like "Müller" is never split inside a character.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return cleaned
}
