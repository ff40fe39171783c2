package assessment

import "strings"

var bulletMarkers = []string{"•", "-", "*"}

// ExtractRecommendations keeps the bulleted lines of an AI response, in order,
// with one leading marker and surrounding whitespace removed. Headings, prose
// and blank lines are dropped. The result is never nil.
func ExtractRecommendations(text string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		marker, ok := leadingMarker(trimmed)
		if !ok {
			continue
		}
		out = append(out, strings.TrimSpace(strings.TrimPrefix(trimmed, marker)))
	}
	return out
}

func leadingMarker(line string) (string, bool) {
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(line, marker) {
			return marker, true
		}
	}
	return "", false
}
