package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/storage"
)

func (s *Store) readTasks() ([]models.Task, error) {
	list, err := readLocal[[]models.Task](s, storage.KeyTasks)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Task{}
	}
	return list, nil
}

// GetTasks returns the locally cached tasks.
func (s *Store) GetTasks() ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTasks()
}

// GetTasksAsync mirrors remote tasks locally, falling back to the local cache.
// Tasks deleted locally stay hidden while the remote still lists them.
func (s *Store) GetTasksAsync(ctx context.Context) ([]models.Task, error) {
	var remote []models.Task
	ok := s.fetch(ctx, "fetch tasks", func(ctx context.Context, r Remote) error {
		var err error
		remote, err = r.FetchTasks(ctx)
		return err
	})
	if !ok {
		return s.GetTasks()
	}
	if remote == nil {
		remote = []models.Task{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	remote = withoutBuried(s, storage.KeyDeletedTasks, remote, func(t models.Task) string { return t.ID })
	if err := s.writeLocal(storage.KeyTasks, remote); err != nil {
		s.logger.Warn("could not mirror remote tasks", "err", err)
	}
	return remote, nil
}

// GetTask returns one cached task.
func (s *Store) GetTask(id string) (models.Task, error) {
	list, err := s.GetTasks()
	if err != nil {
		return models.Task{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
}

// SaveTask inserts or replaces t locally with normalized tags, then pushes it.
// New tasks go to the front of the list.
func (s *Store) SaveTask(t models.Task) (models.Task, error) {
	if t.ID == "" {
		t.ID = shared.GenerateID()
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Tags = models.NormalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	list, err := s.readTasks()
	if err != nil {
		s.mu.Unlock()
		return models.Task{}, err
	}

	now := s.now()
	t.UpdatedAt = now
	i := slices.IndexFunc(list, func(x models.Task) bool { return x.ID == t.ID })
	if i == -1 {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		list = slices.Insert(list, 0, t)
	} else {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = list[i].CreatedAt
		}
		list[i] = t
	}

	werr := s.writeLocal(storage.KeyTasks, list)
	s.mu.Unlock()

	s.push("upsert task", t.ID, func(ctx context.Context, r Remote) error {
		return r.UpsertTask(ctx, t)
	})
	return t, werr
}

// DeleteTask removes a task locally, then remotely in the background.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	list, err := s.readTasks()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := slices.IndexFunc(list, func(x models.Task) bool { return x.ID == id })
	if i == -1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}
	list = slices.Delete(list, i, i+1)
	werr := s.writeLocal(storage.KeyTasks, list)
	if werr == nil {
		werr = s.bury(storage.KeyDeletedTasks, id)
	}
	s.mu.Unlock()

	s.push("delete task", id, func(ctx context.Context, r Remote) error {
		return r.DeleteTask(ctx, id)
	})
	return werr
}

// CycleTaskStatus advances todo -> doing -> done -> todo.
func (s *Store) CycleTaskStatus(id string) (models.Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}
	t.Status = t.Status.Next()
	return s.SaveTask(t)
}
