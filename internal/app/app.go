package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/nhle/crafthub/internal/auth"
	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/feed"
	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
	"github.com/nhle/crafthub/internal/theme"
	"github.com/nhle/crafthub/internal/ui"
	"github.com/nhle/crafthub/internal/ui/boardview"
	"github.com/nhle/crafthub/internal/ui/command"
	"github.com/nhle/crafthub/internal/ui/detail"
	helpview "github.com/nhle/crafthub/internal/ui/help"
	"github.com/nhle/crafthub/internal/ui/projectmgr"
	"github.com/nhle/crafthub/internal/ui/taskform"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskCreate
	ViewTaskEdit
	ViewBoards
)

// Options configures the terminal board.
type Options struct {
	Hub *feed.Hub

	// Identity is nil when nobody is signed in.
	Identity *auth.Identity

	// ProjectID opens a project board instead of the personal one.
	ProjectID string

	Logger *logrus.Logger

	// SignInHint is shown on the signed-out screen.
	SignInHint string
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the mounted board session.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	hub          *feed.Hub
	identity     *auth.Identity
	log          *logrus.Logger
	keys         *keys.KeyMap

	session       *board.Session
	boardName     string
	initialProjID string
	showArchived  bool

	boardView   boardview.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model
	formView    taskform.Model
	boardsView  projectmgr.Model
	progress    progress.Model

	ready      bool
	signedOut  bool
	signInHint string
	flash      string
}

// New creates a new root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	hint := opts.SignInHint
	if hint == "" {
		hint = "Run crafthub --login <token> to sign in."
	}

	userID, author := "", ""
	if opts.Identity != nil {
		userID = opts.Identity.UserID
		author = opts.Identity.Author()
	}
	boardsView := projectmgr.New(opts.Hub.Store(), userID, k, 80, 22)
	boardsView.SetActivityLog(author, logger)

	return Model{
		currentView:   ViewBoard,
		hub:           opts.Hub,
		identity:      opts.Identity,
		log:           logger,
		keys:          k,
		initialProjID: opts.ProjectID,
		boardView:     boardview.New(k, 80, 22),
		detail:        detail.New(k, 80, 22),
		helpView:      helpview.New(k, 80, 22),
		commandView:   command.New(80, 22),
		formView:      taskform.New(80, 22),
		boardsView:    boardsView,
		progress:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		signInHint:    hint,
	}
}

// Init opens the initial board.
func (m Model) Init() tea.Cmd {
	return m.openBoard(m.initialProjID, "")
}

// Close ends the mounted session. It is safe to call more than once.
func (m Model) Close() {
	if m.session != nil {
		m.session.Close()
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.boardView.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.formView.SetSize(contentWidth, contentHeight)
		m.boardsView.SetSize(contentWidth, contentHeight)
		m.progress.Width = m.layout.ProgressWidth()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case boardOpenedMsg:
		return m.mountBoard(msg)

	case viewMsg:
		if msg.session != m.session {
			return m, nil
		}
		m.boardView.SetView(msg.view)
		if m.currentView == ViewDetail {
			if t, ok := m.session.Task(m.detail.TaskID()); ok {
				m.detail.Refresh(t)
			}
		}
		return m, waitForView(msg.session)

	case failureMsg:
		if msg.session != m.session {
			return m, nil
		}
		m.flash = "Save failed: " + msg.err.Error()
		return m, waitForFailure(msg.session)

	case writeDoneMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		}
		return m, nil

	case boardview.SelectedTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadDetail(msg.TaskID)

	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case detail.CommentMsg:
		return m, m.addComment(msg.TaskID, msg.Text)

	case detail.CommentEditMsg:
		return m, m.editComment(msg.TaskID, msg.CommentID, msg.Text)

	case detail.CommentDeleteMsg:
		return m, m.deleteComment(msg.TaskID, msg.CommentID)

	case taskform.TaskCreatedMsg:
		m.currentView = ViewBoard
		return m, m.createTask(msg.Draft)

	case taskform.TaskUpdatedMsg:
		m.currentView = ViewBoard
		return m, m.editTask(msg.TaskID, msg.Patch)

	case taskform.FormCancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case projectmgr.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case projectmgr.BoardSelectedMsg:
		m.currentView = ViewBoard
		return m, m.openBoard(msg.ProjectID, msg.Name)

	case projectmgr.ProjectDeletedMsg:
		if m.session != nil && m.session.Scope().ProjectID == msg.ProjectID {
			return m, m.openBoard("", projectmgr.PersonalBoardName)
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg)
		return m, cmd

	case command.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if m.currentView == ViewHelp && (key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back)) {
			m.currentView = m.previousView
			return m, nil
		}
		if m.currentView == ViewBoard {
			return m.handleBoardKey(msg)
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleBoardKey processes keys while the board is shown.
func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd
	}

	if m.session == nil {
		return m, nil
	}

	task, hasTask := m.boardView.Selected()

	switch {
	case key.Matches(msg, m.keys.Projects):
		m.previousView = m.currentView
		m.currentView = ViewBoards
		return m, m.boardsView.Init()

	case key.Matches(msg, m.keys.New):
		m.previousView = m.currentView
		m.currentView = ViewTaskCreate
		cmd := m.formView.StartCreate(m.initialStatuses())
		return m, cmd

	case key.Matches(msg, m.keys.Edit):
		if !hasTask {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewTaskEdit
		cmd := m.formView.StartEdit(task, board.ColumnsFor(m.session.Scope()))
		return m, cmd

	case key.Matches(msg, m.keys.Delete):
		if !hasTask {
			return m, nil
		}
		return m, m.deleteTask(task.ID)

	case key.Matches(msg, m.keys.Archive):
		if !hasTask {
			return m, nil
		}
		return m, m.archiveTask(task.ID, !task.Archived)

	case key.Matches(msg, m.keys.ShiftLeft):
		if hasTask {
			m.session.Shift(context.Background(), task.ID, -1)
		}
		return m, nil

	case key.Matches(msg, m.keys.ShiftRight):
		if hasTask {
			m.session.Shift(context.Background(), task.ID, 1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.boardView, cmd = m.boardView.Update(msg)
	return m, cmd
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.boardView, cmd = m.boardView.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.formView, cmd = m.formView.Update(msg)
	case ViewBoards:
		m.boardsView, cmd = m.boardsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "CraftHub"
	if m.boardName != "" {
		title += " · " + m.boardName
	}
	if m.showArchived {
		title += " (with archived)"
	}

	bar := ""
	if m.session != nil {
		bar = m.progress.ViewAs(float64(m.boardView.Progress()) / 100)
	}
	header := m.layout.RenderHeader(title, bar)

	var statusBar string
	if m.flash != "" {
		statusBar = m.layout.RenderErrorBar(m.flash)
	} else {
		statusBar = m.layout.RenderStatusBar(m.keyHints())
	}

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		if m.signedOut {
			return m.renderSignedOut()
		}
		return m.boardView.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.formView.View()
	case ViewBoards:
		return m.boardsView.View()
	default:
		return ""
	}
}

func (m Model) renderSignedOut() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Signed out")
	body := lipgloss.JoinVertical(lipgloss.Center, title, "", theme.HelpStyle.Render(m.signInHint))
	return lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Render(body)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		if m.detail.Composing() {
			return "enter post | esc cancel"
		}
		return "esc back | c comment | tab select | e edit | d delete | j/k scroll"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter submit | esc cancel"
	case ViewBoards:
		return "enter open | n new | e edit | a archive | d delete | esc back"
	default:
		if m.signedOut {
			return "q quit | ? help"
		}
		return "q quit | ? help | n new | h/l column | < > move | e edit | d delete | p boards"
	}
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name {
	case "quit", "q":
		m.Close()
		return tea.Quit
	case "help":
		m.previousView = ViewBoard
		m.currentView = ViewHelp
		return nil
	}

	if m.session == nil {
		return nil
	}

	switch cmd.Name {
	case "new":
		if cmd.Arg == "" {
			m.previousView = ViewBoard
			m.currentView = ViewTaskCreate
			return m.formView.StartCreate(m.initialStatuses())
		}
		return m.createTask(model.TaskDraft{Title: cmd.Arg})
	case "move":
		task, ok := m.boardView.Selected()
		if !ok {
			return nil
		}
		to, ok := model.ParseStatus(cmd.Arg)
		if !ok {
			m.flash = fmt.Sprintf("unknown status %q", cmd.Arg)
			return nil
		}
		m.session.Move(context.Background(), task.ID, task.Status, to)
		return nil
	case "archive":
		task, ok := m.boardView.Selected()
		if !ok {
			return nil
		}
		return m.archiveTask(task.ID, !task.Archived)
	case "archived":
		m.showArchived = !m.showArchived
		scope := m.session.Scope()
		return m.openBoard(scope.ProjectID, m.boardName)
	case "boards", "projects":
		m.previousView = ViewBoard
		m.currentView = ViewBoards
		return m.boardsView.Init()
	case "personal":
		return m.openBoard("", projectmgr.PersonalBoardName)
	default:
		m.flash = fmt.Sprintf("unknown command %q", cmd.Name)
		return nil
	}
}

// mountBoard swaps in a newly opened session.
func (m Model) mountBoard(msg boardOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, board.ErrSignedOut) {
			m.signedOut = true
			return m, nil
		}
		m.log.WithError(msg.err).Error("opening board")
		m.flash = "Could not open board: " + msg.err.Error()
		return m, nil
	}

	m.Close()
	m.session = msg.session
	m.boardName = msg.name
	m.signedOut = false
	m.boardView.Reset()
	m.helpView.SetColumns(board.ColumnsFor(msg.session.Scope()))
	m.currentView = ViewBoard

	return m, tea.Batch(waitForView(msg.session), waitForFailure(msg.session))
}

// initialStatuses lists the statuses a new task may start in. Only
// project boards offer a choice.
func (m Model) initialStatuses() []model.Status {
	if m.session == nil || !m.session.IsProject() {
		return nil
	}
	return board.ColumnsFor(m.session.Scope())
}

// scope returns the scope for projectID, or false when signed out.
func (m Model) scope(projectID string) (store.Scope, bool) {
	if m.identity == nil {
		return store.Scope{}, false
	}
	s := m.identity.Scope(projectID)
	return s, s.Valid()
}
