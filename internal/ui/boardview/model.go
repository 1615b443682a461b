package boardview

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/theme"
)

// SelectedTaskMsg is sent when a user opens a card's detail.
type SelectedTaskMsg struct {
	TaskID string
}

// Model renders a board's columns side by side with a card cursor.
type Model struct {
	keys    *keys.KeyMap
	view    board.View
	focus   int
	cursors []int
	loaded  bool
	width   int
	height  int
}

// New creates an empty board view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetView replaces the rendered board. The cursor stays on the selected
// card when it is still present, following it into its new column.
func (m *Model) SetView(v board.View) {
	selected, hadSelection := m.Selected()

	m.view = v
	m.loaded = true
	if len(m.cursors) != len(v.Columns) {
		m.cursors = make([]int, len(v.Columns))
		if m.focus >= len(v.Columns) {
			m.focus = 0
		}
	}

	if hadSelection {
		for ci, col := range v.Columns {
			for ti, t := range col.Tasks {
				if t.ID == selected.ID {
					m.focus = ci
					m.cursors[ci] = ti
					m.clamp()
					return
				}
			}
		}
	}
	m.clamp()
}

// Reset forgets the current board, for example while another one loads.
func (m *Model) Reset() {
	m.view = board.View{}
	m.loaded = false
	m.focus = 0
	m.cursors = nil
}

// Selected returns the card under the cursor.
func (m Model) Selected() (model.Task, bool) {
	if m.focus >= len(m.view.Columns) {
		return model.Task{}, false
	}
	tasks := m.view.Columns[m.focus].Tasks
	if len(tasks) == 0 {
		return model.Task{}, false
	}
	return tasks[m.cursors[m.focus]], true
}

// FocusedStatus returns the status of the focused column.
func (m Model) FocusedStatus() (model.Status, bool) {
	if m.focus >= len(m.view.Columns) {
		return "", false
	}
	return m.view.Columns[m.focus].Status, true
}

// Progress returns the percentage of the current board.
func (m Model) Progress() int { return m.view.Progress }

// Update handles navigation keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.view.Columns) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		if m.focus > 0 {
			m.focus--
		}
	case key.Matches(keyMsg, m.keys.Right):
		if m.focus < len(m.view.Columns)-1 {
			m.focus++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursors[m.focus] > 0 {
			m.cursors[m.focus]--
		}
	case key.Matches(keyMsg, m.keys.Down):
		m.cursors[m.focus]++
		m.clamp()
	case key.Matches(keyMsg, m.keys.Select):
		t, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedTaskMsg{TaskID: t.ID} }
	}
	return m, nil
}

func (m *Model) clamp() {
	for i, col := range m.view.Columns {
		switch {
		case len(col.Tasks) == 0:
			m.cursors[i] = 0
		case m.cursors[i] >= len(col.Tasks):
			m.cursors[i] = len(col.Tasks) - 1
		case m.cursors[i] < 0:
			m.cursors[i] = 0
		}
	}
}

// View renders the columns.
func (m Model) View() string {
	if !m.loaded {
		return m.centered("Loading board...")
	}
	if len(m.view.Columns) == 0 {
		return m.centered("This board has no columns.")
	}

	n := len(m.view.Columns)
	// Each column frame adds two border cells and two padding cells.
	colWidth := m.width/n - 4
	if colWidth < 12 {
		colWidth = 12
	}
	rows := m.height - 4
	if rows < 1 {
		rows = 1
	}

	rendered := make([]string, n)
	for i, col := range m.view.Columns {
		rendered[i] = m.renderColumn(i, col, colWidth, rows)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(idx int, col board.Column, width, rows int) string {
	focused := idx == m.focus

	title := theme.StatusStyle(col.Status).Render(col.Title) +
		lipgloss.NewStyle().Foreground(theme.ColorGray).Render(countLabel(len(col.Tasks)))

	lines := []string{title}
	if len(col.Tasks) == 0 {
		lines = append(lines, theme.HelpStyle.Render("  empty"))
	}

	// Scroll so the cursor stays visible.
	offset := 0
	if focused && m.cursors[idx] >= rows {
		offset = m.cursors[idx] - rows + 1
	}
	end := min(len(col.Tasks), offset+rows)
	for ti := offset; ti < end; ti++ {
		selected := focused && ti == m.cursors[idx]
		lines = append(lines, renderCard(col.Tasks[ti], width, selected))
	}
	if end < len(col.Tasks) {
		lines = append(lines, theme.HelpStyle.Render("  ..."))
	}

	style := theme.ColumnStyle
	if focused {
		style = theme.FocusedColumnStyle
	}
	return style.Width(width).Height(rows + 1).Render(strings.Join(lines, "\n"))
}

func (m Model) centered(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
