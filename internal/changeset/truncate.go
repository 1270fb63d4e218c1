package changeset

import "fmt"

const truncationMarkerTemplateConstant = "\n[... truncated to %d characters ...]"

// TruncationMarker renders the annotation appended to truncated payloads.
func TruncationMarker(budget int) string {
	return fmt.Sprintf(truncationMarkerTemplateConstant, budget)
}

// Truncate keeps the longest rune prefix of payload that fits within budget together with the marker.
// The result never exceeds budget runes, so truncating it again with the same budget returns it unchanged.
// A non-positive budget disables truncation.
func Truncate(payload string, budget int) (string, bool) {
	if budget <= 0 {
		return payload, false
	}

	payloadRunes := []rune(payload)
	if len(payloadRunes) <= budget {
		return payload, false
	}

	markerRunes := []rune(TruncationMarker(budget))
	if len(markerRunes) >= budget {
		return string(markerRunes[len(markerRunes)-budget:]), true
	}

	keptRunes := budget - len(markerRunes)
	return string(payloadRunes[:keptRunes]) + string(markerRunes), true
}
