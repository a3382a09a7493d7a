package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/formatter"
	"github.com/desertthunder/studyflow/internal/importer"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/store"
)

// videoRef resolves --roadmap and the "video" argument.
func (r *Runner) videoRef(cmd *cli.Command) (*store.Store, models.Roadmap, models.Video, error) {
	s, err := r.openStore()
	if err != nil {
		return nil, models.Roadmap{}, models.Video{}, err
	}
	rm, err := r.roadmapRef(s, cmd.String("roadmap"))
	if err != nil {
		return nil, models.Roadmap{}, models.Video{}, err
	}
	v, err := findVideo(rm, cmd.StringArg("video"))
	if err != nil {
		return nil, models.Roadmap{}, models.Video{}, err
	}
	return s, rm, v, nil
}

// VideoAdd looks up each URL and appends the videos to the roadmap in argument order.
func (r *Runner) VideoAdd(ctx context.Context, cmd *cli.Command) error {
	inputs := cmd.Args().Slice()
	if len(inputs) == 0 {
		return fmt.Errorf("%w: at least one YouTube URL or id", shared.ErrMissingArgument)
	}

	return r.importInto(ctx, cmd, func(e *importer.Engine, progress chan<- importer.ProgressUpdate, opts importer.Opts) (*importer.Result, error) {
		return e.ImportVideos(ctx, progress, inputs, opts)
	})
}

// VideoImportPlaylist appends every video of a YouTube playlist to the roadmap.
func (r *Runner) VideoImportPlaylist(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: playlist URL", shared.ErrMissingArgument)
	}

	return r.importInto(ctx, cmd, func(e *importer.Engine, progress chan<- importer.ProgressUpdate, opts importer.Opts) (*importer.Result, error) {
		return e.ImportPlaylist(ctx, progress, url, opts)
	})
}

type importFunc func(e *importer.Engine, progress chan<- importer.ProgressUpdate, opts importer.Opts) (*importer.Result, error)

// importInto runs fn, logs its progress, and saves the resolved videos not already in the roadmap.
func (r *Runner) importInto(ctx context.Context, cmd *cli.Command, fn importFunc) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	rm, err := r.roadmapRef(s, cmd.String("roadmap"))
	if err != nil {
		return err
	}

	progress := make(chan importer.ProgressUpdate, 32)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, importErr := fn(r.engine(), progress, importer.OptsFromConfig(r.config.YouTube))
	close(progress)
	<-drained

	if result == nil {
		return importErr
	}

	existing := make(map[string]bool, len(rm.Videos))
	for _, v := range rm.Videos {
		existing[v.YouTubeID] = true
	}
	videos := make([]models.Video, 0, len(result.Videos))
	skipped := 0
	for _, v := range result.Videos {
		if existing[v.YouTubeID] {
			skipped++
			continue
		}
		videos = append(videos, v)
	}

	if len(videos) > 0 {
		if rm, err = s.AddVideos(rm.ID, videos); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(rm, true); err != nil {
			return err
		}
	} else {
		r.writePlain("✓ Added %d videos to %q (%d%% complete)\n", len(videos), rm.Name, rm.TotalProgress)
		if skipped+result.Duplicates > 0 {
			r.writePlain("  Skipped %d already in the roadmap or repeated\n", skipped+result.Duplicates)
		}
		for _, f := range result.Failures {
			r.writePlain("  ✗ %s: %v\n", f.Input, f.Err)
		}
	}

	if importErr != nil {
		return fmt.Errorf("import interrupted: %w", importErr)
	}
	return nil
}

// VideoRemove deletes a video from the roadmap.
func (r *Runner) VideoRemove(ctx context.Context, cmd *cli.Command) error {
	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}
	if _, err := s.RemoveVideo(rm.ID, v.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %q\n", v.Title)
}

// VideoMove reorders a video. Positions are 1-based and clamped to the list.
func (r *Runner) VideoMove(ctx context.Context, cmd *cli.Command) error {
	pos, err := strconv.Atoi(cmd.StringArg("position"))
	if err != nil {
		return fmt.Errorf("%w: position must be a number", shared.ErrInvalidArgument)
	}

	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}
	updated, err := s.MoveVideo(rm.ID, v.ID, pos-1)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Moved %q to position %d\n", v.Title, updated.FindVideo(v.ID)+1)
}

// VideoProgress sets the watch percentage.
func (r *Runner) VideoProgress(ctx context.Context, cmd *cli.Command) error {
	pct, err := strconv.ParseFloat(strings.TrimSuffix(cmd.StringArg("percent"), "%"), 64)
	if err != nil {
		return fmt.Errorf("%w: percent must be a number", shared.ErrInvalidArgument)
	}

	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}
	updated, err := s.UpdateVideoProgress(rm.ID, v.ID, pct)
	if err != nil {
		return err
	}
	return r.writeVideoStatus(updated, v.ID)
}

// VideoComplete marks a video watched.
func (r *Runner) VideoComplete(ctx context.Context, cmd *cli.Command) error {
	return r.setCompleted(cmd, true)
}

// VideoUncomplete clears the watched flag.
func (r *Runner) VideoUncomplete(ctx context.Context, cmd *cli.Command) error {
	return r.setCompleted(cmd, false)
}

func (r *Runner) setCompleted(cmd *cli.Command, completed bool) error {
	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}
	updated, err := s.SetVideoCompleted(rm.ID, v.ID, completed)
	if err != nil {
		return err
	}
	return r.writeVideoStatus(updated, v.ID)
}

func (r *Runner) writeVideoStatus(rm models.Roadmap, videoID string) error {
	i := rm.FindVideo(videoID)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
	}
	v := rm.Videos[i]
	state := "in progress"
	if v.IsComplete() {
		state = "completed"
	}
	return r.writePlain("✓ %s: %.0f%% (%s). Roadmap %q is %d%% complete\n", v.Title, v.Progress, state, rm.Name, rm.TotalProgress)
}

// VideoNotes prints the notes, or replaces, appends to, or exports them.
func (r *Runner) VideoNotes(ctx context.Context, cmd *cli.Command) error {
	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}

	if dir := cmd.String("export"); dir != "" {
		path, err := formatter.WriteExport(dir, formatter.NotesFilename(v), formatter.ExportNotesMarkdown(v))
		if err != nil {
			return err
		}
		return r.writePlain("✓ Notes exported to %s\n", path)
	}

	notes, changed := v.Notes, false
	switch {
	case cmd.IsSet("file"):
		data, err := os.ReadFile(cmd.String("file"))
		if err != nil {
			return fmt.Errorf("failed to read notes file: %w", err)
		}
		notes, changed = string(data), true
	case cmd.IsSet("set"):
		notes, changed = cmd.String("set"), true
	}
	if line := cmd.String("append"); line != "" {
		if notes != "" && !strings.HasSuffix(notes, "\n") {
			notes += "\n"
		}
		notes, changed = notes+line+"\n", true
	}

	if !changed {
		if strings.TrimSpace(v.Notes) == "" {
			return r.writePlain("No notes for %q\n", v.Title)
		}
		return r.writePlain("%s\n", strings.TrimRight(v.Notes, "\n"))
	}

	if _, err := s.SaveNotes(rm.ID, v.ID, notes); err != nil {
		return err
	}
	return r.writePlain("✓ Saved notes for %q\n", v.Title)
}

// VideoTimestamp lists markers, or adds one with --at, or removes one with --remove.
func (r *Runner) VideoTimestamp(ctx context.Context, cmd *cli.Command) error {
	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}

	switch {
	case cmd.IsSet("remove"):
		index := int(cmd.Int("remove"))
		if _, err := s.RemoveTimestamp(rm.ID, v.ID, index-1); err != nil {
			return err
		}
		return r.writePlain("✓ Removed marker %d from %q\n", index, v.Title)

	case cmd.IsSet("at"):
		at, err := parseClockArg(cmd.String("at"))
		if err != nil {
			return err
		}
		ts := models.Timestamp{Time: at, Note: cmd.String("note")}
		if _, err := s.AddTimestamp(rm.ID, v.ID, ts); err != nil {
			return err
		}
		return r.writePlain("✓ Added %s %s\n", models.NoteMarker(ts.Time), ts.Note)
	}

	if cmd.Bool("json") {
		return r.writeJSON(v.Timestamps, true)
	}
	if len(v.Timestamps) == 0 {
		return r.writePlain("No markers for %q\n", v.Title)
	}

	rows := make([][]string, 0, len(v.Timestamps))
	for i, ts := range v.Timestamps {
		rows = append(rows, []string{strconv.Itoa(i + 1), models.FormatClock(ts.Time), ts.Note})
	}
	return r.writeTable([]string{"#", "At", "Note"}, rows, []columnAlignment{alignRight, alignRight})
}

// VideoPosition prints the saved resume point, or saves one with --set.
//
// With --duration the position also drives progress, auto-completing near the end.
func (r *Runner) VideoPosition(ctx context.Context, cmd *cli.Command) error {
	s, rm, v, err := r.videoRef(cmd)
	if err != nil {
		return err
	}

	if !cmd.IsSet("set") {
		pos, ok := s.GetVideoPosition(v.YouTubeID)
		if !ok {
			return r.writePlain("No saved position for %q\n", v.Title)
		}
		return r.writePlain("%s resumes at %s (%s&t=%ds)\n", v.Title, models.FormatClock(pos), watchURL(v), int(pos))
	}

	pos, err := parseClockArg(cmd.String("set"))
	if err != nil {
		return err
	}

	if !cmd.IsSet("duration") {
		if err := s.SaveVideoPosition(v.YouTubeID, pos); err != nil {
			return err
		}
		return r.writePlain("✓ Saved position %s for %q\n", models.FormatClock(pos), v.Title)
	}

	duration, err := parseClockArg(cmd.String("duration"))
	if err != nil {
		return err
	}
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", shared.ErrInvalidArgument)
	}
	updated, err := s.RecordPlayback(rm.ID, v.ID, pos, duration)
	if err != nil {
		return err
	}
	return r.writeVideoStatus(updated, v.ID)
}
