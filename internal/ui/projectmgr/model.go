package projectmgr

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
	"github.com/nhle/crafthub/internal/theme"
)

// CloseMsg signals the parent to close the board picker.
type CloseMsg struct{}

// BoardSelectedMsg asks the parent to open a board. An empty ProjectID
// selects the personal board.
type BoardSelectedMsg struct {
	ProjectID string
	Name      string
}

// ProjectDeletedMsg reports that a project board no longer exists.
type ProjectDeletedMsg struct {
	ProjectID string
}

type projectMode int

const (
	modeList projectMode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	name        string
	description string
	confirm     bool
}

type projectsLoadedMsg struct {
	projects []model.Project
	err      error
}

type projectSavedMsg struct{ err error }

type projectDeletedMsg struct {
	id  string
	err error
}

type projectArchivedMsg struct{ err error }

// PersonalBoardName labels the entry for the personal board.
const PersonalBoardName = "Personal board"

// Model lists the user's boards and manages project boards.
type Model struct {
	mode        projectMode
	store       store.Store
	userID      string
	author      string
	log         logrus.FieldLogger
	keys        *keys.KeyMap
	projects    []model.Project
	selectedIdx int
	editingID   string
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a board picker for userID.
func New(s store.Store, userID string, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		store:  s,
		userID: userID,
		log:    discardLogger(),
		keys:   k,
		fb:     &formBindings{},
		width:  width, height: height,
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetActivityLog sets the author recorded on project activity and the
// logger that reports recording failures.
func (m *Model) SetActivityLog(author string, log logrus.FieldLogger) {
	m.author = author
	if log != nil {
		m.log = log
	}
}

// recorder returns a function appending a project line to the user's
// activity log.
func (m Model) recorder() func(id, action string) {
	s, uid, author, log := m.store, m.userID, m.author, m.log
	return func(id, action string) {
		board.RecordActivity(context.Background(), s, log, model.ActivityEntry{
			UserID:    uid,
			ProjectID: id,
			Author:    author,
			Action:    action,
			Kind:      model.ActivityKindProject,
			RefID:     id,
		})
	}
}

// Init loads projects from the store.
func (m Model) Init() tea.Cmd {
	return m.loadProjects()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		}
		m.projects = msg.projects
		if m.selectedIdx >= m.entries() {
			m.selectedIdx = m.entries() - 1
		}
		return m, nil

	case projectSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Project saved"
		}
		m.mode = modeList
		return m, m.loadProjects()

	case projectDeletedMsg:
		m.mode = modeList
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, m.loadProjects()
		}
		m.statusMsg = "Project deleted"
		id := msg.id
		return m, tea.Batch(m.loadProjects(), func() tea.Msg { return ProjectDeletedMsg{ProjectID: id} })

	case projectArchivedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		}
		m.mode = modeList
		return m, m.loadProjects()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

// entries counts the personal board plus every project.
func (m Model) entries() int { return len(m.projects) + 1 }

// selectedProject returns the highlighted project; false on the
// personal board entry.
func (m Model) selectedProject() (model.Project, bool) {
	if m.selectedIdx == 0 || m.selectedIdx > len(m.projects) {
		return model.Project{}, false
	}
	return m.projects[m.selectedIdx-1], true
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		m.selectedIdx = (m.selectedIdx + 1) % m.entries()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.selectedIdx--
		if m.selectedIdx < 0 {
			m.selectedIdx = m.entries() - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		p, ok := m.selectedProject()
		if !ok {
			return m, func() tea.Msg { return BoardSelectedMsg{Name: PersonalBoardName} }
		}
		if p.Archived {
			m.statusMsg = "Restore the project before opening its board"
			return m, nil
		}
		return m, func() tea.Msg { return BoardSelectedMsg{ProjectID: p.ID, Name: p.Name} }

	case key.Matches(msg, m.keys.New):
		m.isNew = true
		m.editingID = ""
		m.fb.name = ""
		m.fb.description = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		p, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		m.isNew = false
		m.editingID = p.ID
		m.fb.name = p.Name
		m.fb.description = p.Description
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Archive):
		p, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		return m, m.toggleArchive(p)

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.selectedProject(); !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Project name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Placeholder("Optional description").
				Value(&m.fb.description),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	p, _ := m.selectedProject()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete project %q?", p.Name)).
				Description("Its board and all of its tasks are removed.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m, m.saveProject()
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		if p, ok := m.selectedProject(); ok && m.fb.confirm {
			return m, m.deleteProject(p.ID)
		}
		m.mode = modeList
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the board picker.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Boards"))
	b.WriteString("\n\n")

	labels := make([]string, 0, m.entries())
	labels = append(labels, "◆  "+PersonalBoardName)
	for _, p := range m.projects {
		label := "▣  " + p.Name
		if p.Archived {
			label += " (archived)"
		}
		labels = append(labels, label)
	}
	for i, label := range labels {
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}
	if len(m.projects) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString("\n")
		b.WriteString(emptyStyle.Render("No projects yet. Press 'n' to create one."))
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"enter open | n new | e edit | a archive/restore | d delete | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m Model) loadProjects() tea.Cmd {
	s, uid := m.store, m.userID
	return func() tea.Msg {
		projects, err := s.ListProjects(context.Background(), uid, true)
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

func (m Model) saveProject() tea.Cmd {
	s, uid := m.store, m.userID
	fb := m.fb
	editID := m.editingID
	isNew := m.isNew
	record := m.recorder()
	return func() tea.Msg {
		p := model.Project{
			UserID:      uid,
			Name:        strings.TrimSpace(fb.name),
			Description: fb.description,
		}
		if isNew {
			id, err := s.CreateProject(context.Background(), p)
			if err == nil {
				record(id, fmt.Sprintf("project %q created", p.Name))
			}
			return projectSavedMsg{err: err}
		}
		current, err := s.GetProject(context.Background(), uid, editID)
		if err != nil {
			return projectSavedMsg{err: err}
		}
		current.Name = p.Name
		current.Description = p.Description
		if err := s.UpdateProject(context.Background(), *current); err != nil {
			return projectSavedMsg{err: err}
		}
		record(editID, fmt.Sprintf("project %q updated", p.Name))
		return projectSavedMsg{}
	}
}

func (m Model) deleteProject(id string) tea.Cmd {
	s, uid := m.store, m.userID
	record := m.recorder()
	return func() tea.Msg {
		err := s.DeleteProject(context.Background(), uid, id)
		if err == nil {
			record(id, "project deleted")
		}
		return projectDeletedMsg{id: id, err: err}
	}
}

func (m Model) toggleArchive(p model.Project) tea.Cmd {
	s := m.store
	record := m.recorder()
	return func() tea.Msg {
		p.Archived = !p.Archived
		if err := s.UpdateProject(context.Background(), p); err != nil {
			return projectArchivedMsg{err: err}
		}
		action := fmt.Sprintf("project %q restored", p.Name)
		if p.Archived {
			action = fmt.Sprintf("project %q archived", p.Name)
		}
		record(p.ID, action)
		return projectArchivedMsg{}
	}
}
