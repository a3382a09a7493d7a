package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/formatter"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/store"
)

// roadmapRef resolves the "roadmap" argument against the local cache.
func (r *Runner) roadmapRef(s *store.Store, ref string) (models.Roadmap, error) {
	roadmaps, err := s.GetRoadmaps()
	if err != nil {
		return models.Roadmap{}, err
	}
	return findRoadmap(roadmaps, ref)
}

// RoadmapList prints every cached roadmap with its progress.
func (r *Runner) RoadmapList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	roadmaps, err := s.GetRoadmaps()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(roadmaps, true)
	}

	if len(roadmaps) == 0 {
		return r.writePlain("No roadmaps yet. Create one with 'studyflow roadmap create <name>'.\n")
	}

	rows := make([][]string, 0, len(roadmaps))
	for _, rm := range roadmaps {
		rows = append(rows, []string{
			shortID(rm.ID),
			rm.Name,
			fmt.Sprintf("%d/%d", rm.CompletedCount(), len(rm.Videos)),
			fmt.Sprintf("%d%%", rm.TotalProgress),
			rm.UpdatedAt.Local().Format(models.DateLayout),
		})
	}
	return r.writeTable(
		[]string{"ID", "Name", "Watched", "Progress", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

// RoadmapShow prints a roadmap's details and its videos in order.
func (r *Runner) RoadmapShow(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	rm, err := r.roadmapRef(s, cmd.StringArg("roadmap"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(rm, true)
	}

	r.writePlainHeader(rm.Name)
	if rm.Description != "" {
		r.writePlain("%s\n", rm.Description)
	}
	r.writePlain("ID: %s\n", rm.ID)
	r.writePlain("Progress: %d%% (%d of %d videos)\n\n", rm.TotalProgress, rm.CompletedCount(), len(rm.Videos))

	if len(rm.Videos) == 0 {
		return r.writePlain("No videos yet. Add one with 'studyflow video add -r %s <url>'.\n", shortID(rm.ID))
	}

	rows := make([][]string, 0, len(rm.Videos))
	for i, v := range rm.Videos {
		done := ""
		if v.IsComplete() {
			done = "✓"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			v.YouTubeID,
			v.Title,
			v.Duration,
			fmt.Sprintf("%.0f%%", v.Progress),
			done,
			fmt.Sprintf("%d", len(v.Timestamps)),
		})
	}
	return r.writeTable(
		[]string{"#", "YouTube ID", "Title", "Duration", "Progress", "Done", "Marks"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	)
}

// RoadmapCreate saves a new empty roadmap.
func (r *Runner) RoadmapCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: roadmap name", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	rm := models.NewRoadmap(name, cmd.String("description"))
	rm.CreatedAt, rm.UpdatedAt = r.now(), r.now()
	saved, err := s.SaveRoadmap(rm)
	if err != nil {
		return err
	}

	r.logger.Info("created roadmap", "id", saved.ID, "remote", s.RemoteEnabled())
	if cmd.Bool("json") {
		return r.writeJSON(saved, true)
	}
	return r.writePlain("✓ Created roadmap %q (%s)\n", saved.Name, saved.ID)
}

// RoadmapRename changes the name and optionally the description.
func (r *Runner) RoadmapRename(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: new roadmap name", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	rm, err := r.roadmapRef(s, cmd.StringArg("roadmap"))
	if err != nil {
		return err
	}

	rm.Name = name
	if cmd.IsSet("description") {
		rm.Description = cmd.String("description")
	}
	saved, err := s.SaveRoadmap(rm)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Renamed roadmap to %q\n", saved.Name)
}

// RoadmapDelete removes a roadmap locally and, when signed in, on the backend.
func (r *Runner) RoadmapDelete(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	rm, err := r.roadmapRef(s, cmd.StringArg("roadmap"))
	if err != nil {
		return err
	}

	if err := s.DeleteRoadmap(rm.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted roadmap %q\n", rm.Name)
}

// RoadmapSync replaces the local roadmaps with the backend copy.
func (r *Runner) RoadmapSync(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	if !s.RemoteEnabled() {
		return fmt.Errorf("%w: run 'studyflow auth github' or 'studyflow auth email' first", shared.ErrNotAuthenticated)
	}

	before, err := s.GetRoadmaps()
	if err != nil {
		return err
	}
	after, err := s.GetRoadmapsAsync(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("synced roadmaps", "before", len(before), "after", len(after))
	if cmd.Bool("json") {
		return r.writeJSON(after, true)
	}
	return r.writePlain("✓ Synced %d roadmaps from %s\n", len(after), r.config.Remote.URL)
}

// RoadmapExport writes the roadmap in the requested format.
//
// Markdown writes a directory with README.md, a cover image and one notes file per annotated video.
// CSV and JSON write a single file.
func (r *Runner) RoadmapExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	rm, err := r.roadmapRef(s, cmd.StringArg("roadmap"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if format == formatter.FormatMarkdown {
		result, err := formatter.WriteMarkdownExport(rm, filepath.Join(output, rm.ID), r.logger)
		if err != nil {
			return fmt.Errorf("failed to export roadmap: %w", err)
		}
		r.writePlain("✓ Exported %q to %s\n", rm.Name, result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	}

	data, err := formatter.Export(rm, format)
	if err != nil {
		return err
	}
	path, err := formatter.WriteExport(output, "studyflow-roadmap-"+rm.ID+format.Extension(), data)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %q to %s\n", rm.Name, path)
}

// watchURL renders the canonical link for tables and messages.
func watchURL(v models.Video) string {
	return services.WatchURL(v.YouTubeID)
}
