package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/theme"
)

const dateLayout = "2006-01-02"

// TaskCreatedMsg is dispatched when the create form is submitted.
type TaskCreatedMsg struct {
	Draft model.TaskDraft
}

// TaskUpdatedMsg is dispatched when the edit form is submitted. Patch
// holds only the fields the user changed.
type TaskUpdatedMsg struct {
	TaskID string
	Patch  model.TaskPatch
}

// FormCancelMsg is dispatched when the user cancels the form.
type FormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	dueDate     string
	status      model.Status
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	original model.Task
	columns  []model.Status
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium, status: model.StatusTodo},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task. Non-empty columns
// offer a choice of initial status, as project boards allow.
func (m *Model) StartCreate(columns []model.Status) tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	m.columns = columns
	*m.fb = formBindings{priority: model.PriorityMedium, status: model.StatusTodo}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for an existing task. columns are the
// statuses offered in the status selector.
func (m *Model) StartEdit(task model.Task, columns []model.Status) tea.Cmd {
	m.editMode = true
	m.original = task
	m.columns = columns
	*m.fb = formBindings{
		title:       task.Title,
		description: task.Description,
		priority:    task.Priority,
		status:      task.Status,
	}
	if !m.fb.priority.Valid() {
		m.fb.priority = model.PriorityMedium
	}
	if task.DueDate != nil {
		m.fb.dueDate = task.DueDate.Format(dateLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return FormCancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(priorityOptions()...).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
	}

	if len(m.columns) > 0 {
		opts := make([]huh.Option[model.Status], len(m.columns))
		for i, s := range m.columns {
			opts[i] = huh.NewOption(s.Label(), s)
		}
		fields = append(fields,
			huh.NewSelect[model.Status]().
				Title("Status").
				Options(opts...).
				Value(&m.fb.status),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func priorityOptions() []huh.Option[model.Priority] {
	opts := make([]huh.Option[model.Priority], 0, len(model.Priorities))
	for i := len(model.Priorities) - 1; i >= 0; i-- {
		p := model.Priorities[i]
		opts = append(opts, huh.NewOption(p.Label(), p))
	}
	return opts
}

func (m Model) handleSubmit() tea.Cmd {
	due := parseDate(m.fb.dueDate)

	if m.editMode {
		id := m.original.ID
		patch := buildPatch(m.original, *m.fb, due)
		return func() tea.Msg { return TaskUpdatedMsg{TaskID: id, Patch: patch} }
	}

	draft := model.TaskDraft{
		Title:       m.fb.title,
		Description: m.fb.description,
		Priority:    m.fb.priority,
		DueDate:     due,
	}
	if len(m.columns) > 0 {
		draft.Status = m.fb.status
	}
	return func() tea.Msg { return TaskCreatedMsg{Draft: draft} }
}

// buildPatch diffs the submitted values against the task being edited.
func buildPatch(orig model.Task, fb formBindings, due *time.Time) model.TaskPatch {
	var p model.TaskPatch
	if title := strings.TrimSpace(fb.title); title != orig.Title {
		p.Title = &title
	}
	if fb.description != orig.Description {
		d := fb.description
		p.Description = &d
	}
	if fb.priority != orig.Priority {
		pri := fb.priority
		p.Priority = &pri
	}
	if fb.status != "" && fb.status != orig.Status {
		s := fb.status
		p.Status = &s
	}
	if !sameDay(due, orig.DueDate) {
		p.DueDate = &due
	}
	return p
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(dateLayout) == b.Format(dateLayout)
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

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
