package models

import (
	"slices"
	"time"
)

// QueuedVideo is an entry in the "need to watch" queue.
type QueuedVideo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail"`
	AddedAt   time.Time `json:"addedAt"`
}

// HabitLog maps a habit name to the days (YYYY-MM-DD) it was completed.
type HabitLog map[string][]string

// Done reports whether habit was completed on day.
func (h HabitLog) Done(habit string, day time.Time) bool {
	return slices.Contains(h[habit], day.Format(DateLayout))
}

// Toggle flips completion of habit on day and returns the new state.
func (h HabitLog) Toggle(habit string, day time.Time) bool {
	key := day.Format(DateLayout)
	days := h[habit]
	if i := slices.Index(days, key); i >= 0 {
		h[habit] = slices.Delete(days, i, i+1)
		return false
	}
	days = append(days, key)
	slices.Sort(days)
	h[habit] = days
	return true
}

// Streak counts consecutive completed days ending at today, or at yesterday when today is not yet done.
func (h HabitLog) Streak(habit string, today time.Time) int {
	day := today
	if !h.Done(habit, day) {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for h.Done(habit, day) {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// Names returns the habit names in sorted order.
func (h HabitLog) Names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
