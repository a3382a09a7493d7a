// Package ui implements an interactive roadmap browser using bubbletea's Elm architecture.
//
// Views:
//  1. [RoadmapListView] : Roadmaps with aggregate progress bars
//  2. [VideoListView] : Videos of the selected roadmap with per-video progress
//  3. [VideoDetailView] : Notes and timestamps of one video
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It starts from the local cache and then refreshes from the remote store, so the list appears immediately even offline.
// Toggling completion writes through the store, which pushes to the remote in the background.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
