package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/studyflow/internal/shared"
)

// ValidSeconds reports whether seconds is a finite, non-negative playback time.
func ValidSeconds(seconds float64) bool {
	return seconds >= 0 && !math.IsInf(seconds, 0)
}

// FormatClock renders seconds as "m:ss" or "h:mm:ss".
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseClock parses "ss", "m:ss" or "h:mm:ss" into seconds.
func ParseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: invalid clock %q", shared.ErrInvalidArgument, s)
	}

	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: invalid clock %q", shared.ErrInvalidArgument, s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%w: invalid clock %q", shared.ErrInvalidArgument, s)
		}
		total = total*60 + n
	}
	return float64(total), nil
}

var markerPattern = regexp.MustCompile(`\[\[(\d+(?::\d{2}){1,2})\]\][ \t]*([^\n]*)`)

// NoteMarker renders the "[[mm:ss]]" marker inserted into notes.
func NoteMarker(seconds float64) string {
	return "[[" + FormatClock(seconds) + "]]"
}

// ParseNoteMarkers extracts "[[mm:ss]] text" markers from Markdown notes in order of appearance.
func ParseNoteMarkers(notes string) []Timestamp {
	out := []Timestamp{}
	for _, m := range markerPattern.FindAllStringSubmatch(notes, -1) {
		secs, err := ParseClock(m[1])
		if err != nil {
			continue
		}
		out = append(out, Timestamp{Time: secs, Note: strings.TrimSpace(m[2])})
	}
	return out
}
