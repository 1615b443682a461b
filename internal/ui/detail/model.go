package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// DetailLoadedMsg carries a task together with its discussion and history.
type DetailLoadedMsg struct {
	Task     model.Task
	Comments []model.Comment
	Activity []model.ActivityEntry
	Err      error
}

// CommentMsg asks the parent to attach a comment to the shown task.
type CommentMsg struct {
	TaskID string
	Text   string
}

// CommentEditMsg asks the parent to replace a comment's text.
type CommentEditMsg struct {
	TaskID    string
	CommentID string
	Text      string
}

// CommentDeleteMsg asks the parent to remove a comment.
type CommentDeleteMsg struct {
	TaskID    string
	CommentID string
}

// Model is the task detail view component.
type Model struct {
	task      *model.Task
	comments  []model.Comment
	activity  []model.ActivityEntry
	loadErr   error
	viewport  viewport.Model
	input     textinput.Model
	composing bool
	keys      *keys.KeyMap
	width     int
	height    int
	loading   bool

	// selected indexes comments; -1 when none is selected.
	selected int
	// editing is the comment being rewritten by the input, or "".
	editing string
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.Placeholder = "write a comment..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Width = width - 6

	return Model{
		viewport: vp,
		input:    ti,
		keys:     keys,
		width:    width,
		height:   height,
		selected: -1,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.SetDetail(msg)
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			return m.handleComposeKeys(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Comment):
			if m.task != nil {
				m.composing = true
				m.editing = ""
				m.input.Reset()
				cmd := m.input.Focus()
				return m, cmd
			}
			return m, nil

		case key.Matches(msg, m.keys.NextComment):
			m.selectComment(1)
			return m, nil

		case key.Matches(msg, m.keys.PrevComment):
			m.selectComment(-1)
			return m, nil

		case key.Matches(msg, m.keys.Edit):
			c, ok := m.SelectedComment()
			if !ok {
				return m, nil
			}
			m.composing = true
			m.editing = c.ID
			m.input.SetValue(c.Text)
			m.input.CursorEnd()
			cmd := m.input.Focus()
			return m, cmd

		case key.Matches(msg, m.keys.Delete):
			c, ok := m.SelectedComment()
			if !ok {
				return m, nil
			}
			taskID, commentID := m.task.ID, c.ID
			return m, func() tea.Msg { return CommentDeleteMsg{TaskID: taskID, CommentID: commentID} }
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleComposeKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		editing := m.editing
		m.stopComposing()
		if text == "" || m.task == nil {
			return m, nil
		}
		taskID := m.task.ID
		if editing != "" {
			return m, func() tea.Msg { return CommentEditMsg{TaskID: taskID, CommentID: editing, Text: text} }
		}
		return m, func() tea.Msg { return CommentMsg{TaskID: taskID, Text: text} }

	case "esc":
		m.stopComposing()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopComposing() {
	m.composing = false
	m.editing = ""
	m.input.Blur()
	m.input.Reset()
}

// selectComment moves the comment selection by delta, wrapping around.
func (m *Model) selectComment(delta int) {
	n := len(m.comments)
	if n == 0 {
		m.selected = -1
		return
	}
	if m.selected < 0 {
		if delta > 0 {
			m.selected = 0
		} else {
			m.selected = n - 1
		}
	} else {
		m.selected = (m.selected + delta + n) % n
	}
	m.viewport.SetContent(m.renderContent())
}

// SelectedComment returns the highlighted comment.
func (m Model) SelectedComment() (model.Comment, bool) {
	if m.selected < 0 || m.selected >= len(m.comments) {
		return model.Comment{}, false
	}
	return m.comments[m.selected], true
}

// Editing reports whether the input rewrites an existing comment.
func (m Model) Editing() bool { return m.editing != "" }

// Composing reports whether the comment input has focus.
func (m Model) Composing() bool { return m.composing }

// TaskID returns the ID of the shown task, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		return m.placeholder("Loading task details...")
	}
	if m.loadErr != nil {
		return m.placeholder("Could not load task: " + m.loadErr.Error())
	}
	if m.task == nil {
		return m.placeholder("No task selected")
	}

	if m.composing {
		return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.input.View())
	}
	return m.viewport.View()
}

func (m Model) placeholder(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	statusBadge := theme.StatusStyle(task.Status).Render(task.Status.Label())
	priBadge := theme.PriorityStyle(task.Priority).Render(task.Priority.Label())
	badges := []string{statusBadge, "  ", priBadge}
	if task.Archived {
		badges = append(badges, "  ", theme.DimmedStyle.Render("archived"))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if task.DueDate != nil {
		sections = append(sections, fmt.Sprintf(
			"%s       %s",
			metaStyle.Render("Due:"),
			valStyle.Render(task.DueDate.Format("2006-01-02")),
		))
	}
	if !task.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Created:"),
			valStyle.Render(task.CreatedAt.Local().Format("2006-01-02 15:04")),
		))
	}
	if !task.UpdatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Updated:"),
			valStyle.Render(task.UpdatedAt.Local().Format("2006-01-02 15:04")),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(1, min(m.width-4, 80))))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	sections = append(sections, "", separator, "")
	sections = append(sections, headerStyle.Render("Description"), "")
	if task.Description == "" {
		sections = append(sections, emptyStyle.Render("No description"))
	} else {
		sections = append(sections, task.Description)
	}

	sections = append(sections, "", separator, "")
	sections = append(sections, headerStyle.Render(fmt.Sprintf("Comments (%d)", len(m.comments))), "")
	if len(m.comments) == 0 {
		sections = append(sections, emptyStyle.Render("No comments yet. Press c to add one."))
	}
	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	for i, c := range m.comments {
		marker := "  "
		if i == m.selected {
			marker = authorStyle.Render("› ")
		}
		stamp := c.CreatedAt.Local().Format("2006-01-02 15:04")
		if c.UpdatedAt.After(c.CreatedAt) {
			stamp += " (edited)"
		}
		sections = append(sections,
			marker+fmt.Sprintf("%s  %s", authorStyle.Render(c.Author), metaStyle.Render(stamp)),
			"  "+c.Text,
			"",
		)
	}

	if len(m.activity) > 0 {
		sections = append(sections, separator, "")
		sections = append(sections, headerStyle.Render("Activity"), "")
		for _, a := range m.activity {
			sections = append(sections, fmt.Sprintf(
				"%s  %s %s",
				metaStyle.Render(a.CreatedAt.Local().Format("01-02 15:04")),
				authorStyle.Render(a.Author),
				a.Action,
			))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDetail replaces the shown task and re-renders the content.
func (m *Model) SetDetail(d DetailLoadedMsg) {
	m.loading = false
	m.loadErr = d.Err
	if d.Err != nil {
		m.task = nil
		return
	}
	task := d.Task
	if m.task == nil || m.task.ID != task.ID {
		m.selected = -1
	}
	m.task = &task
	m.comments = d.Comments
	m.activity = d.Activity
	if m.selected >= len(m.comments) {
		m.selected = len(m.comments) - 1
	}
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders with a newer version of the shown task.
func (m *Model) Refresh(task model.Task) {
	if m.task == nil || m.task.ID != task.ID {
		return
	}
	m.task = &task
	m.viewport.SetContent(m.renderContent())
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	m.stopComposing()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.input.Width = width - 6
	m.viewport.SetContent(m.renderContent())
}
