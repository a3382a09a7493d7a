package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/studyflow/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgRoadmapsLoaded MsgKind = iota
	MsgRoadmapSaved
)

type roadmapsLoaded struct {
	roadmaps []models.Roadmap
	remote   bool
	err      error
}

type roadmapSaved struct {
	roadmap models.Roadmap
	err     error
}

// roadmapsLoadedMsg is the constructor for [MsgRoadmapsLoaded].
// remote reports whether the list came from a remote refresh.
func roadmapsLoadedMsg(roadmaps []models.Roadmap, remote bool, err error) Msg {
	return Msg{kind: MsgRoadmapsLoaded, data: roadmapsLoaded{roadmaps, remote, err}}
}

// roadmapSavedMsg is the constructor for [MsgRoadmapSaved]
func roadmapSavedMsg(roadmap models.Roadmap, err error) Msg {
	return Msg{kind: MsgRoadmapSaved, data: roadmapSaved{roadmap, err}}
}
