package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/studyflow/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RoadmapListView ViewState = iota
	VideoListView
	VideoDetailView
)

// RoadmapStore is the part of [store.Store] the browser needs.
type RoadmapStore interface {
	GetRoadmaps() ([]models.Roadmap, error)
	GetRoadmapsAsync(ctx context.Context) ([]models.Roadmap, error)
	SetVideoCompleted(roadmapID, videoID string, completed bool) (models.Roadmap, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	store       RoadmapStore
	width       int
	height      int
	roadmapList list.Model
	roadmaps    []models.Roadmap
	videoList   list.Model
	roadmapID   string
	videoID     string
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model over s.
func NewModel(ctx context.Context, s RoadmapStore) *Model {
	m := &Model{
		ctx:   ctx,
		view:  RoadmapListView,
		store: s,
		help:  help.New(),
		keys:  newKeyMap(),
	}
	m.roadmapList = newList("Roadmaps", nil)
	m.videoList = newList("", nil)
	return m
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init loads the cached roadmaps, then refreshes from the remote store.
func (m *Model) Init() tea.Cmd {
	return tea.Sequence(m.loadLocal(), m.refresh())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.roadmapList.SetSize(msg.Width-4, msg.Height-6)
		m.videoList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if m.filtering() {
			return m.updateLists(msg)
		}
		switch m.view {
		case RoadmapListView:
			return m.handleRoadmapListKeys(msg)
		case VideoListView:
			return m.handleVideoListKeys(msg)
		case VideoDetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgRoadmapsLoaded:
		data := msg.data.(roadmapsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.setRoadmaps(data.roadmaps)
		if data.remote {
			m.status = fmt.Sprintf("Refreshed %d roadmaps", len(data.roadmaps))
		}
		return m, nil

	case MsgRoadmapSaved:
		data := msg.data.(roadmapSaved)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.replaceRoadmap(data.roadmap)
		m.status = fmt.Sprintf("%s: %d%% complete", data.roadmap.Name, data.roadmap.TotalProgress)
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case RoadmapListView:
		body = m.renderRoadmapList()
	case VideoListView:
		body = m.renderVideoList()
	case VideoDetailView:
		body = m.renderDetail()
	}

	if m.err != nil {
		body += "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	} else if m.status != "" {
		body += "\n" + styles.help.Render(m.status)
	}
	return body
}

func (m *Model) filtering() bool {
	switch m.view {
	case RoadmapListView:
		return m.roadmapList.FilterState() == list.Filtering
	case VideoListView:
		return m.videoList.FilterState() == list.Filtering
	}
	return false
}

func (m *Model) handleRoadmapListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.status = "Refreshing..."
		return m, m.refresh()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.roadmapList.SelectedItem().(roadmapItem); ok {
			m.openRoadmap(item.roadmap)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.roadmapList, cmd = m.roadmapList.Update(msg)
	return m, cmd
}

func (m *Model) handleVideoListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = RoadmapListView
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.status = "Refreshing..."
		return m, m.refresh()
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.videoList.SelectedItem().(videoItem); ok {
			return m, m.toggle(item.video)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.videoList.SelectedItem().(videoItem); ok {
			m.videoID = item.video.ID
			m.view = VideoDetailView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.videoList, cmd = m.videoList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = VideoListView
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		if v, ok := m.currentVideo(); ok {
			return m, m.toggle(v)
		}
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case RoadmapListView:
		m.roadmapList, cmd = m.roadmapList.Update(msg)
	case VideoListView:
		m.videoList, cmd = m.videoList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadLocal() tea.Cmd {
	return func() tea.Msg {
		roadmaps, err := m.store.GetRoadmaps()
		return roadmapsLoadedMsg(roadmaps, false, err)
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		roadmaps, err := m.store.GetRoadmapsAsync(m.ctx)
		return roadmapsLoadedMsg(roadmaps, true, err)
	}
}

func (m *Model) toggle(v models.Video) tea.Cmd {
	roadmapID := m.roadmapID
	return func() tea.Msg {
		rm, err := m.store.SetVideoCompleted(roadmapID, v.ID, !v.IsComplete())
		return roadmapSavedMsg(rm, err)
	}
}

func (m *Model) setRoadmaps(roadmaps []models.Roadmap) {
	m.roadmaps = roadmaps
	items := make([]list.Item, len(roadmaps))
	for i, rm := range roadmaps {
		items[i] = roadmapItem{roadmap: rm}
	}
	m.roadmapList.SetItems(items)

	if m.view == RoadmapListView {
		return
	}
	if rm, ok := m.currentRoadmap(); ok {
		m.openRoadmap(rm)
		return
	}
	m.view = RoadmapListView
}

func (m *Model) replaceRoadmap(rm models.Roadmap) {
	roadmaps := make([]models.Roadmap, len(m.roadmaps))
	copy(roadmaps, m.roadmaps)
	for i := range roadmaps {
		if roadmaps[i].ID == rm.ID {
			roadmaps[i] = rm
		}
	}
	m.setRoadmaps(roadmaps)
}

// openRoadmap shows rm's videos, keeping the cursor when rm is already open.
func (m *Model) openRoadmap(rm models.Roadmap) {
	cursor := 0
	if m.roadmapID == rm.ID {
		cursor = m.videoList.Index()
	}

	items := make([]list.Item, len(rm.Videos))
	for i, v := range rm.Videos {
		items[i] = videoItem{video: v}
	}
	m.videoList.SetItems(items)
	m.videoList.Title = fmt.Sprintf("%s (%d%%)", rm.Name, rm.TotalProgress)
	if cursor < len(items) {
		m.videoList.Select(cursor)
	}

	m.roadmapID = rm.ID
	if m.view == RoadmapListView {
		m.view = VideoListView
	}
}

func (m *Model) currentRoadmap() (models.Roadmap, bool) {
	for _, rm := range m.roadmaps {
		if rm.ID == m.roadmapID {
			return rm, true
		}
	}
	return models.Roadmap{}, false
}

func (m *Model) currentVideo() (models.Video, bool) {
	rm, ok := m.currentRoadmap()
	if !ok {
		return models.Video{}, false
	}
	if i := rm.FindVideo(m.videoID); i >= 0 {
		return rm.Videos[i], true
	}
	return models.Video{}, false
}

func (m *Model) renderRoadmapList() string {
	if len(m.roadmaps) == 0 {
		return fmt.Sprintf("%s\nNo roadmaps yet. Create one with `studyflow roadmap create`.\n\n%s",
			styles.title.Render("Roadmaps"),
			m.help.ShortHelpView([]key.Binding{m.keys.refresh, m.keys.quit}),
		)
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.roadmapList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderVideoList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.toggle, m.keys.back, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.videoList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	v, ok := m.currentVideo()
	if !ok {
		return styles.warn.Render("Video no longer exists\n\nPress esc to go back")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(v.Title))
	b.WriteString("\n")

	status := styles.warn.Render("in progress")
	pct := v.Progress
	if v.IsComplete() {
		status = styles.ok.Render("✓ completed")
		pct = 100
	}
	fmt.Fprintf(&b, "%s %3.0f%%  %s  %s\n", progressBar(pct, barWidth*2), pct, v.Duration, status)
	fmt.Fprintf(&b, "https://www.youtube.com/watch?v=%s\n\n", v.YouTubeID)

	if len(v.Timestamps) > 0 {
		b.WriteString(styles.ok.Render("Timestamps"))
		b.WriteString("\n")
		for _, ts := range v.Timestamps {
			fmt.Fprintf(&b, "  %s %s\n", models.NoteMarker(ts.Time), ts.Note)
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.ok.Render("Notes"))
	b.WriteString("\n")
	if strings.TrimSpace(v.Notes) == "" {
		b.WriteString(styles.help.Render("No notes yet"))
	} else {
		b.WriteString(v.Notes)
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", b.String(), m.help.ShortHelpView(helpKeys))
}
