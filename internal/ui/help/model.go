package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	columns []model.Status
	width   int
	height  int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:    keys,
		help:    h,
		columns: model.PersonalColumns,
		width:   width,
		height:  height,
	}
}

// SetColumns sets the column legend shown under the shortcuts.
func (m *Model) SetColumns(columns []model.Status) {
	m.columns = columns
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	legend := make([]string, len(m.columns))
	for i, s := range m.columns {
		legend[i] = theme.StatusStyle(s).Render(s.Label())
	}
	columns := lipgloss.JoinVertical(lipgloss.Left,
		"",
		titleStyle.Render("Columns"),
		strings.Join(legend, theme.HelpStyle.Render("→")),
		theme.HelpStyle.Render("< and > move the selected card one column; it is saved right away."),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, columns)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
