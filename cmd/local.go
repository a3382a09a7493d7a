package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

// HabitList prints each habit with today's state and current streak.
func (r *Runner) HabitList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	habits, err := s.GetHabits()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(habits, true)
	}
	names := habits.Names()
	if len(names) == 0 {
		return r.writePlain("No habits yet. Start one with 'studyflow habit toggle <name>'.\n")
	}

	today := r.now()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		done := ""
		if habits.Done(name, today) {
			done = "✓"
		}
		rows = append(rows, []string{name, done, fmt.Sprintf("%d", habits.Streak(name, today))})
	}
	return r.writeTable([]string{"Habit", "Today", "Streak"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

// HabitToggle flips a habit for --date, defaulting to today.
func (r *Runner) HabitToggle(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")

	day := r.now()
	if raw := cmd.String("date"); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, day.Location())
		if err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", shared.ErrInvalidArgument)
		}
		day = parsed
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	done, err := s.ToggleHabit(name, day)
	if err != nil {
		return err
	}
	streak, err := s.HabitStreak(strings.TrimSpace(name), r.now())
	if err != nil {
		return err
	}

	state := "not done"
	if done {
		state = "done"
	}
	return r.writePlain("✓ %s marked %s for %s (streak: %d)\n", name, state, day.Format(models.DateLayout), streak)
}

// QueueList prints the watch queue.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	queue, err := s.GetWatchQueue()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(queue, true)
	}
	if len(queue) == 0 {
		return r.writePlain("Watch queue is empty.\n")
	}

	rows := make([][]string, 0, len(queue))
	for _, q := range queue {
		rows = append(rows, []string{shortID(q.ID), q.Title, q.URL, q.AddedAt.Local().Format(models.DateLayout)})
	}
	return r.writeTable([]string{"ID", "Title", "URL", "Added"}, rows, nil)
}

// QueueAdd queues a video. The title is looked up unless --title is given.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	id, ok := services.ExtractVideoID(cmd.StringArg("url"))
	if !ok {
		return fmt.Errorf("%w: %q", shared.ErrInvalidVideoURL, cmd.StringArg("url"))
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	title := cmd.String("title")
	thumbnail := services.ThumbnailURL(id)
	if title == "" {
		v, err := r.videoLookup().Lookup(ctx, id)
		if err != nil {
			r.logger.Warn("title lookup failed", "id", id, "error", err)
		}
		title = v.Title
		if title == "" {
			title = services.FallbackTitle
		}
		if v.Thumbnail != "" {
			thumbnail = v.Thumbnail
		}
	}

	queued, err := s.Enqueue(models.QueuedVideo{
		Title:     title,
		URL:       services.WatchURL(id),
		Thumbnail: thumbnail,
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Queued %q (%s)\n", queued.Title, shortID(queued.ID))
}

// QueueRemove drops an entry by id or id prefix.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	queue, err := s.GetWatchQueue()
	if err != nil {
		return err
	}
	i, err := lookup(queue, cmd.StringArg("id"), shared.ErrNotFound, func(q models.QueuedVideo) (string, string) {
		return q.ID, q.Title
	})
	if err != nil {
		return err
	}

	if err := s.Dequeue(queue[i].ID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %q from the queue\n", queue[i].Title)
}

// LibraryList prints the Study Library.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	notes, err := s.GetLibrary()
	if err != nil {
		return err
	}
	return r.writeLibrary(cmd, notes, "Library is empty. Add a note with 'studyflow library add <title>'.\n")
}

// LibrarySearch prints the entries matching a query.
func (r *Runner) LibrarySearch(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	query := cmd.StringArg("query")
	notes, err := s.SearchLibrary(query)
	if err != nil {
		return err
	}
	return r.writeLibrary(cmd, notes, fmt.Sprintf("No library entries match %q.\n", query))
}

func (r *Runner) writeLibrary(cmd *cli.Command, notes []models.StudyNote, empty string) error {
	if cmd.Bool("json") {
		return r.writeJSON(notes, true)
	}
	if len(notes) == 0 {
		return r.writePlain("%s", empty)
	}

	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []string{shortID(n.ID), n.Title, string(n.Kind), n.FileSize, n.CreatedAt.Local().Format(models.DateLayout)})
	}
	return r.writeTable([]string{"ID", "Title", "Type", "Size", "Added"}, rows, nil)
}

// LibraryAdd stores a note from --content, or imports a document from --file.
func (r *Runner) LibraryAdd(ctx context.Context, cmd *cli.Command) error {
	note := models.StudyNote{
		Title:   cmd.StringArg("title"),
		Content: cmd.String("content"),
		Kind:    models.NoteKind(cmd.String("type")),
	}

	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read library file: %w", err)
		}
		note.Content = string(data)
		note.FileSize = models.FormatFileSize(int64(len(data)))
		if note.Kind == "" {
			note.Kind = models.NoteKindForFile(path)
		}
		if strings.TrimSpace(note.Title) == "" {
			note.Title = filepath.Base(path)
		}
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	saved, err := s.AddNote(note)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %s %q (%s)\n", saved.Kind, saved.Title, shortID(saved.ID))
}

// LibraryRemove drops an entry by id, id prefix or title.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	notes, err := s.GetLibrary()
	if err != nil {
		return err
	}
	i, err := lookup(notes, cmd.StringArg("id"), shared.ErrNotFound, func(n models.StudyNote) (string, string) {
		return n.ID, n.Title
	})
	if err != nil {
		return err
	}

	if err := s.DeleteNote(notes[i].ID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %q from the library\n", notes[i].Title)
}
