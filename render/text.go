package render

import (
	"strings"
	"unicode/utf8"
)

// DefaultBreakLength is the column at which narrative text starts looking
// for a space to break onto the second line.
const DefaultBreakLength = 65

// boilerplate markers start the temperature and wind summary the provider
// appends to every narrative. The structured fields already carry those values.
var boilerplateMarkers = []string{"High", "Low"}

// CleanText cuts a narrative at the first "High" marker, or the first "Low"
// marker when there is no "High", and drops the separator character just
// before it. Text without a marker is returned unchanged.
func CleanText(text string) string {
	for _, marker := range boilerplateMarkers {
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		if idx == 0 {
			return ""
		}
		_, size := utf8.DecodeLastRuneInString(text[:idx])
		return text[:idx-size]
	}
	return text
}

// WrapText splits text into two display lines. Text of at most breakLength
// characters stays on the first line. Longer text breaks at the first space at
// or after breakLength, and the second line keeps that leading space. When no
// such space exists the whole text stays on the first line.
func WrapText(text string, breakLength int) (string, string) {
	runes := []rune(text)
	if len(runes) <= breakLength {
		return text, ""
	}

	start := max(breakLength, 0)
	for i := start; i < len(runes); i++ {
		if runes[i] == ' ' {
			return string(runes[:i]), string(runes[i:])
		}
	}
	return text, ""
}
