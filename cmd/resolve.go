package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// lookup finds ref among items: an exact id first, then a case-insensitive name, then a unique id prefix.
func lookup[T any](items []T, ref string, notFound error, fields func(T) (id, name string)) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, fmt.Errorf("%w: id or name", shared.ErrMissingArgument)
	}

	for i, item := range items {
		if id, _ := fields(item); id == ref {
			return i, nil
		}
	}
	for i, item := range items {
		if _, name := fields(item); name != "" && strings.EqualFold(name, ref) {
			return i, nil
		}
	}

	match, n := -1, 0
	for i, item := range items {
		if id, _ := fields(item); strings.HasPrefix(id, ref) {
			match, n = i, n+1
		}
	}
	switch n {
	case 0:
		return -1, fmt.Errorf("%w: %s", notFound, ref)
	case 1:
		return match, nil
	default:
		return -1, fmt.Errorf("%w: %q matches %d items", shared.ErrInvalidArgument, ref, n)
	}
}

func findRoadmap(roadmaps []models.Roadmap, ref string) (models.Roadmap, error) {
	i, err := lookup(roadmaps, ref, shared.ErrRoadmapNotFound, func(r models.Roadmap) (string, string) {
		return r.ID, r.Name
	})
	if err != nil {
		return models.Roadmap{}, err
	}
	return roadmaps[i], nil
}

// findVideo also accepts a 1-based position or a YouTube id.
func findVideo(rm models.Roadmap, ref string) (models.Video, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil && n >= 1 && n <= len(rm.Videos) {
		return rm.Videos[n-1], nil
	}
	for _, v := range rm.Videos {
		if v.YouTubeID == ref {
			return v, nil
		}
	}
	i, err := lookup(rm.Videos, ref, shared.ErrVideoNotFound, func(v models.Video) (string, string) {
		return v.ID, v.Title
	})
	if err != nil {
		return models.Video{}, err
	}
	return rm.Videos[i], nil
}

func findTask(tasks []models.Task, ref string) (models.Task, error) {
	i, err := lookup(tasks, ref, shared.ErrTaskNotFound, func(t models.Task) (string, string) {
		return t.ID, t.Title
	})
	if err != nil {
		return models.Task{}, err
	}
	return tasks[i], nil
}

// shortID trims a UUID to its first block for tables.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// parseClockArg reads "m:ss", "h:mm:ss" or plain (possibly fractional) seconds.
func parseClockArg(s string) (float64, error) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		if f < 0 {
			return 0, fmt.Errorf("%w: negative time %q", shared.ErrInvalidArgument, s)
		}
		return f, nil
	}
	return models.ParseClock(s)
}
