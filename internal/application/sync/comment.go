package sync

import (
	"fmt"
	"strings"
)

// validationMarker is the literal prefix of every system-authored diagnostic
// appended to an order's remote comment. Its presence is also the dedup
// check on repeated failed attempts.
const validationMarker = "SYSTEM: Brak danych do produkcji."

const maxCommentLength = 200

// BuildValidationComment composes the remote comment for a failed
// validation. Returns the combined comment and whether it should be posted;
// an existing comment that already carries the marker is left alone.
func BuildValidationComment(existing string, errs []string) (string, bool) {
	if strings.Contains(existing, validationMarker) {
		return "", false
	}

	text := validationMarker + " " + summarizeErrors(errs)

	combined := text
	if strings.TrimSpace(existing) != "" {
		combined = existing + " | " + text
	}

	return truncateComment(combined), true
}

// summarizeErrors keeps the first two messages and counts the rest.
func summarizeErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	shown := errs
	if len(shown) > 2 {
		shown = shown[:2]
	}
	summary := strings.Join(shown, "; ")
	if extra := len(errs) - len(shown); extra > 0 {
		summary += fmt.Sprintf(" (+%d)", extra)
	}
	return summary
}

func truncateComment(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCommentLength {
		return s
	}
	return string(runes[:maxCommentLength-3]) + "..."
}
