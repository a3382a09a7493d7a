package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/store"
)

func (r *Runner) taskRef(s *store.Store, ref string) (models.Task, error) {
	tasks, err := s.GetTasks()
	if err != nil {
		return models.Task{}, err
	}
	return findTask(tasks, ref)
}

// TaskList prints tasks, optionally filtered by status. Order is newest first, as stored.
func (r *Runner) TaskList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	tasks, err := s.GetTasks()
	if err != nil {
		return err
	}

	if raw := cmd.String("status"); raw != "" {
		status, err := models.ParseTaskStatus(raw)
		if err != nil {
			return err
		}
		tasks = slices.DeleteFunc(tasks, func(t models.Task) bool { return t.Status != status })
	}

	if cmd.Bool("json") {
		return r.writeJSON(tasks, true)
	}
	if len(tasks) == 0 {
		return r.writePlain("No tasks.\n")
	}

	today := r.now()
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due := t.DueDate
		if d, ok := t.Due(); ok && t.Status != models.StatusDone && d.Before(startOfDay(today)) {
			due += " (overdue)"
		}
		rows = append(rows, []string{
			shortID(t.ID),
			t.Title,
			t.Status.Label(),
			t.Priority.Label(),
			due,
			strings.Join(t.Tags, ", "),
		})
	}
	return r.writeTable([]string{"ID", "Title", "Status", "Priority", "Due", "Tags"}, rows, nil)
}

// TaskAdd creates a todo task.
func (r *Runner) TaskAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(cmd.StringArg("title"))
	if title == "" {
		return fmt.Errorf("%w: task title", shared.ErrMissingArgument)
	}

	priority, err := models.ParseTaskPriority(cmd.String("priority"))
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	t := models.NewTask(title)
	t.Priority = priority
	t.DueDate = cmd.String("due")
	t.Tags = cmd.StringSlice("tag")
	t.CreatedAt = r.now()

	saved, err := s.SaveTask(t)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(saved, true)
	}
	return r.writePlain("✓ Added task %q (%s)\n", saved.Title, shortID(saved.ID))
}

// TaskStatus moves a task to the named status.
func (r *Runner) TaskStatus(ctx context.Context, cmd *cli.Command) error {
	status, err := models.ParseTaskStatus(cmd.StringArg("status"))
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}
	t, err := r.taskRef(s, cmd.StringArg("task"))
	if err != nil {
		return err
	}

	t.Status = status
	saved, err := s.SaveTask(t)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %q is now %s\n", saved.Title, saved.Status.Label())
}

// TaskCycle advances a task to its next status.
func (r *Runner) TaskCycle(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	t, err := r.taskRef(s, cmd.StringArg("task"))
	if err != nil {
		return err
	}

	saved, err := s.CycleTaskStatus(t.ID)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %q is now %s\n", saved.Title, saved.Status.Label())
}

// TaskDelete removes a task.
func (r *Runner) TaskDelete(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	t, err := r.taskRef(s, cmd.StringArg("task"))
	if err != nil {
		return err
	}

	if err := s.DeleteTask(t.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted task %q\n", t.Title)
}

// TaskSync replaces the local tasks with the backend copy.
func (r *Runner) TaskSync(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	if !s.RemoteEnabled() {
		return fmt.Errorf("%w: run 'studyflow auth github' or 'studyflow auth email' first", shared.ErrNotAuthenticated)
	}

	tasks, err := s.GetTasksAsync(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tasks, true)
	}
	return r.writePlain("✓ Synced %d tasks from %s\n", len(tasks), r.config.Remote.URL)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
