package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/studyflow/internal/shared"
)

// NoteKind is the kind of a Study Library entry.
type NoteKind string

const (
	NoteKindNote     NoteKind = "note"
	NoteKindPDF      NoteKind = "pdf"
	NoteKindMarkdown NoteKind = "markdown"
)

var noteKinds = []NoteKind{NoteKindNote, NoteKindPDF, NoteKindMarkdown}

// ParseNoteKind validates a kind name. An empty name is a plain note.
func ParseNoteKind(s string) (NoteKind, error) {
	k := NoteKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return NoteKindNote, nil
	}
	if !slices.Contains(noteKinds, k) {
		return "", fmt.Errorf("%w: note type must be note, pdf or markdown, got %q", shared.ErrInvalidInput, s)
	}
	return k, nil
}

// NoteKindForFile guesses the kind of an uploaded file from its name.
func NoteKindForFile(name string) NoteKind {
	switch strings.ToLower(name[strings.LastIndex(name, ".")+1:]) {
	case "pdf":
		return NoteKindPDF
	case "md", "markdown":
		return NoteKindMarkdown
	default:
		return NoteKindNote
	}
}

// StudyNote is an entry in the Study Library: a written note or an uploaded document.
type StudyNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      NoteKind  `json:"type"`
	CreatedAt time.Time `json:"date"`
	FileSize  string    `json:"fileSize,omitempty"`
}

// Matches reports whether query occurs in the title or content, ignoring case.
// An empty query matches everything.
func (n StudyNote) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q)
}

// FormatFileSize renders a byte count for display, e.g. "1.2 kB".
func FormatFileSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
