package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crafthub/internal/theme"
)

// CommandMsg is emitted when the user executes a command. Name is the
// first word, lower-cased; Arg is the remainder with spacing preserved.
type CommandMsg struct {
	Name string
	Arg  string
}

// CloseMsg is emitted when the palette is dismissed without a command.
type CloseMsg struct{}

// Names lists the commands offered as completions.
var Names = []string{
	"new", "move", "archive", "archived", "boards", "personal", "help", "quit",
}

// Parse splits a palette line into a CommandMsg. An empty line yields
// false.
func Parse(line string) (CommandMsg, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return CommandMsg{}, false
	}
	name, arg, _ := strings.Cut(line, " ")
	return CommandMsg{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "new <title> | move <status> | boards | archived | quit"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			if cmd, ok := Parse(line); ok {
				return m, func() tea.Msg { return cmd }
			}
			return m, func() tea.Msg { return CloseMsg{} }
		case "esc":
			m.input.Reset()
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()

	content := lipgloss.JoinVertical(lipgloss.Left, title, input)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
