package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	bar   lipgloss.Style
	track lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		bar:   NewStyle(s),
		track: NewStyle(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// progressBar renders pct (0-100) as a bar width cells wide.
func progressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = max(0, min(100, pct))
	filled := int(pct / 100 * float64(width))
	return styles.bar.Render(strings.Repeat("█", filled)) + styles.track.Render(strings.Repeat("░", width-filled))
}
