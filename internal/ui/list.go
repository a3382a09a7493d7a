package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/studyflow/internal/models"
)

var (
	_ list.Item = roadmapItem{}
	_ list.Item = videoItem{}
)

const barWidth = 20

// roadmapItem wraps [models.Roadmap] to implement [list.Item].
type roadmapItem struct {
	roadmap models.Roadmap
}

func (i roadmapItem) FilterValue() string { return i.roadmap.Name }
func (i roadmapItem) Title() string       { return i.roadmap.Name }
func (i roadmapItem) Description() string {
	desc := fmt.Sprintf("%s %3d%% • %d/%d videos",
		progressBar(float64(i.roadmap.TotalProgress), barWidth),
		i.roadmap.TotalProgress,
		i.roadmap.CompletedCount(),
		len(i.roadmap.Videos),
	)
	if i.roadmap.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.roadmap.Description)
	}
	return desc
}

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string {
	if i.video.IsComplete() {
		return "✓ " + i.video.Title
	}
	return "  " + i.video.Title
}
func (i videoItem) Description() string {
	pct := i.video.Progress
	if i.video.IsComplete() {
		pct = 100
	}
	return fmt.Sprintf("%s %3.0f%% • %s", progressBar(pct, barWidth), pct, i.video.Duration)
}
