package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/desertthunder/studyflow/internal/shared"
)

// TaskStatus is the planner column a task sits in.
type TaskStatus string

const (
	StatusTodo  TaskStatus = "todo"
	StatusDoing TaskStatus = "doing"
	StatusDone  TaskStatus = "done"
)

// TaskPriority ranks planner tasks.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// DateLayout is the format of [Task.DueDate].
const DateLayout = time.DateOnly

// Task is an independent planner item.
type Task struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Status    TaskStatus   `json:"status"`
	Priority  TaskPriority `json:"priority"`
	DueDate   string       `json:"dueDate,omitempty"`
	Tags      []string     `json:"tags"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	UserID    string       `json:"userId,omitempty"`
}

// NewTask creates a todo task with medium priority.
func NewTask(title string) Task {
	now := time.Now()
	return Task{
		ID:        shared.GenerateID(),
		Title:     title,
		Status:    StatusTodo,
		Priority:  PriorityMedium,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Next cycles todo -> doing -> done -> todo. Unknown values restart at todo.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case StatusTodo:
		return StatusDoing
	case StatusDoing:
		return StatusDone
	default:
		return StatusTodo
	}
}

// ParseTaskStatus accepts a status name in any case.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusTodo, StatusDoing, StatusDone:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown task status %q", shared.ErrInvalidArgument, s)
	}
}

// ParseTaskPriority accepts a priority name in any case.
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch p := TaskPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown task priority %q", shared.ErrInvalidArgument, s)
	}
}

// Rank orders priorities high to low for sorting.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// NormalizeTags trims, case-folds, and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	folder := cases.Fold()
	for _, tag := range tags {
		tag = folder.String(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Due parses DueDate. ok is false when no due date is set.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.DueDate)
	return d, err == nil
}

// Validate checks required fields and enum values.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title is required", shared.ErrInvalidInput)
	}
	if _, err := ParseTaskStatus(string(t.Status)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if _, err := ParseTaskPriority(string(t.Priority)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateLayout, t.DueDate); err != nil {
			return fmt.Errorf("%w: due date must be YYYY-MM-DD", shared.ErrInvalidInput)
		}
	}
	return nil
}

// Label renders a status for display, e.g. "Doing".
func (s TaskStatus) Label() string { return cases.Title(language.Und).String(string(s)) }

// Label renders a priority for display, e.g. "High".
func (p TaskPriority) Label() string { return cases.Title(language.Und).String(string(p)) }
