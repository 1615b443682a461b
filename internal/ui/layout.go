package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crafthub/internal/theme"
)

// Layout manages the board screen dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// ProgressWidth is the width of the header progress bar.
func (l Layout) ProgressWidth() int {
	w := l.Width / 3
	if w < 10 {
		w = 10
	}
	if w > 40 {
		w = 40
	}
	return w
}

// RenderHeader renders the top bar: the board title on the left and
// the progress bar on the right.
func (l Layout) RenderHeader(title string, progress string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	progressRendered := theme.HeaderStyle.Render(progress)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(progressRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		progressRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.renderBar(theme.StatusBarStyle, hints)
}

// RenderErrorBar renders the bottom bar in the error style.
func (l Layout) RenderErrorBar(message string) string {
	return l.renderBar(theme.ErrorBarStyle, message)
}

func (l Layout) renderBar(style lipgloss.Style, text string) string {
	rendered := style.Render(text)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
