package importer

import (
	"fmt"

	"github.com/desertthunder/studyflow/internal/models"
)

// ProgressUpdate represents a progress event during an import.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, e.g. the resolved [models.Video]
}

// Phase of an import.
type Phase int

const (
	FetchPlaylist Phase = iota
	ParseInputs
	LookupVideos
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case ParseInputs:
		return "parse_inputs"
	case LookupVideos:
		return "lookup_videos"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Listing playlist %s...", url),
	}
}

func foundPlaylistUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d videos", count),
	}
}

func parsedInputsUpdate(valid, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseInputs,
		Step:    valid,
		Total:   total,
		Message: fmt.Sprintf("%d of %d inputs are YouTube videos", valid, total),
	}
}

func lookupDoneUpdate(step, total int, v models.Video) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, v.Title),
		Data:    v,
	}
}

func lookupFailedUpdate(step, total int, input string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, input, err),
	}
}

func doneUpdate(r *Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    len(r.Videos),
		Total:   r.Total,
		Message: fmt.Sprintf("Imported %d of %d videos", len(r.Videos), r.Total),
		Data:    r,
	}
}
