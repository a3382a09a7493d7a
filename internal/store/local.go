package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/storage"
)

func (s *Store) readHabits() (models.HabitLog, error) {
	h, err := readLocal[models.HabitLog](s, storage.KeyHabits)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = models.HabitLog{}
	}
	return h, nil
}

// GetHabits returns the local habit log.
func (s *Store) GetHabits() (models.HabitLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHabits()
}

// ToggleHabit flips a habit for day and reports whether it is now done.
func (s *Store) ToggleHabit(name string, day time.Time) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: habit name", shared.ErrMissingArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.readHabits()
	if err != nil {
		return false, err
	}
	done := h.Toggle(name, day)
	return done, s.writeLocal(storage.KeyHabits, h)
}

// HabitStreak returns the current streak for name as of today.
func (s *Store) HabitStreak(name string, today time.Time) (int, error) {
	h, err := s.GetHabits()
	if err != nil {
		return 0, err
	}
	return h.Streak(name, today), nil
}

// GetWatchQueue returns the "need to watch" queue, newest first.
func (s *Store) GetWatchQueue() ([]models.QueuedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readQueue()
}

func (s *Store) readQueue() ([]models.QueuedVideo, error) {
	q, err := readLocal[[]models.QueuedVideo](s, storage.KeyWatchQueue)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = []models.QueuedVideo{}
	}
	return q, nil
}

// Enqueue adds v to the front of the watch queue.
func (s *Store) Enqueue(v models.QueuedVideo) (models.QueuedVideo, error) {
	if v.ID == "" {
		v.ID = shared.GenerateID()
	}
	if v.AddedAt.IsZero() {
		v.AddedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.readQueue()
	if err != nil {
		return models.QueuedVideo{}, err
	}
	q = slices.Insert(q, 0, v)
	return v, s.writeLocal(storage.KeyWatchQueue, q)
}

// Dequeue removes an entry from the watch queue.
func (s *Store) Dequeue(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.readQueue()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(q, func(x models.QueuedVideo) bool { return x.ID == id })
	if i == -1 {
		return fmt.Errorf("queued video %w: %s", shared.ErrNotFound, id)
	}
	return s.writeLocal(storage.KeyWatchQueue, slices.Delete(q, i, i+1))
}

func (s *Store) readLibrary() ([]models.StudyNote, error) {
	notes, err := readLocal[[]models.StudyNote](s, storage.KeyLibrary)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.StudyNote{}
	}
	return notes, nil
}

// GetLibrary returns the Study Library, newest first.
func (s *Store) GetLibrary() ([]models.StudyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLibrary()
}

// AddNote puts n at the front of the library. A title is required.
func (s *Store) AddNote(n models.StudyNote) (models.StudyNote, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return models.StudyNote{}, fmt.Errorf("%w: note title", shared.ErrMissingArgument)
	}
	kind, err := models.ParseNoteKind(string(n.Kind))
	if err != nil {
		return models.StudyNote{}, err
	}
	n.Kind = kind
	if n.ID == "" {
		n.ID = shared.GenerateID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.readLibrary()
	if err != nil {
		return models.StudyNote{}, err
	}
	notes = slices.Insert(notes, 0, n)
	return n, s.writeLocal(storage.KeyLibrary, notes)
}

// DeleteNote removes a library entry.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.readLibrary()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(notes, func(x models.StudyNote) bool { return x.ID == id })
	if i == -1 {
		return fmt.Errorf("library note %w: %s", shared.ErrNotFound, id)
	}
	return s.writeLocal(storage.KeyLibrary, slices.Delete(notes, i, i+1))
}

// SearchLibrary returns the entries whose title or content contains query, ignoring case.
func (s *Store) SearchLibrary(query string) ([]models.StudyNote, error) {
	notes, err := s.GetLibrary()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(notes, func(n models.StudyNote) bool { return !n.Matches(query) }), nil
}
