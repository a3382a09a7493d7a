package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/desertthunder/studyflow/internal/shared"
)

// AutoCompleteThreshold is the playback percentage at which a video counts as watched.
const AutoCompleteThreshold = 95.0

// Timestamp is a note pinned to a playback position.
type Timestamp struct {
	Time float64 `json:"time"` // seconds
	Note string  `json:"note"`
}

// Video is a single YouTube item inside a [Roadmap].
type Video struct {
	ID         string      `json:"id"`
	YouTubeID  string      `json:"youtubeId"`
	Title      string      `json:"title"`
	Thumbnail  string      `json:"thumbnail"`
	Duration   string      `json:"duration"`
	Completed  bool        `json:"completed"`
	Progress   float64     `json:"progress"` // 0-100
	Notes      string      `json:"notes"`    // Markdown
	Timestamps []Timestamp `json:"timestamps"`
}

// Roadmap is a named, ordered collection of videos.
//
// Version increases on every local write so the backend can refuse out-of-order upserts.
type Roadmap struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Videos        []Video   `json:"videos"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	TotalProgress int       `json:"totalProgress"`
	Version       int64     `json:"version"`
	UserID        string    `json:"userId,omitempty"`
}

// NewVideo creates a video with a generated ID and zero progress.
func NewVideo(youtubeID, title string) Video {
	return Video{
		ID:         shared.GenerateID(),
		YouTubeID:  youtubeID,
		Title:      title,
		Duration:   "0:00",
		Timestamps: []Timestamp{},
	}
}

// IsComplete reports whether the video counts toward roadmap progress.
func (v Video) IsComplete() bool {
	return v.Completed || v.Progress >= 100
}

// NewRoadmap creates an empty roadmap with a generated ID.
func NewRoadmap(name, description string) Roadmap {
	now := time.Now()
	return Roadmap{
		ID:          shared.GenerateID(),
		Name:        name,
		Description: description,
		Videos:      []Video{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ComputeProgress returns the rounded percentage of complete videos, 0 for an empty list.
func ComputeProgress(videos []Video) int {
	if len(videos) == 0 {
		return 0
	}

	completed := 0
	for _, v := range videos {
		if v.IsComplete() {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(videos)) * 100))
}

// ClampProgress bounds p to [0, 100]. NaN becomes 0.
func ClampProgress(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(100, p))
}

// ProgressFromPlayback converts a player position into a progress percentage.
// The bool reports whether [AutoCompleteThreshold] has been reached.
func ProgressFromPlayback(current, duration float64) (float64, bool) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, false
	}
	p := ClampProgress(current / duration * 100)
	return p, p >= AutoCompleteThreshold
}

// Normalize returns a copy with nil slices replaced and TotalProgress recomputed.
func (r Roadmap) Normalize() Roadmap {
	videos := make([]Video, len(r.Videos))
	for i, v := range r.Videos {
		if v.Timestamps == nil {
			v.Timestamps = []Timestamp{}
		} else {
			v.Timestamps = append([]Timestamp(nil), v.Timestamps...)
		}
		videos[i] = v
	}
	r.Videos = videos
	r.TotalProgress = ComputeProgress(videos)
	return r
}

// FindVideo returns the index of the video with id, or -1.
func (r Roadmap) FindVideo(id string) int {
	for i, v := range r.Videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// CompletedCount returns how many videos count as complete.
func (r Roadmap) CompletedCount() int {
	n := 0
	for _, v := range r.Videos {
		if v.IsComplete() {
			n++
		}
	}
	return n
}

// Validate checks required fields on the roadmap and its videos.
func (r Roadmap) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: roadmap id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: roadmap name is required", shared.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(r.Videos))
	for _, v := range r.Videos {
		if v.ID == "" {
			return fmt.Errorf("%w: video id is required", shared.ErrInvalidInput)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate video id %s", shared.ErrInvalidInput, v.ID)
		}
		seen[v.ID] = true
	}
	return nil
}
