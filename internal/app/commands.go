package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/ui/detail"
	"github.com/nhle/crafthub/internal/ui/projectmgr"
)

// boardOpenedMsg carries a freshly opened session.
type boardOpenedMsg struct {
	session *board.Session
	name    string
	err     error
}

// viewMsg carries a board view from a session's Views channel.
type viewMsg struct {
	session *board.Session
	view    board.View
}

// failureMsg carries a write failure reported by a session.
type failureMsg struct {
	session *board.Session
	err     error
}

// writeDoneMsg reports the outcome of a synchronous board write.
type writeDoneMsg struct {
	op  string
	err error
}

// waitForView returns a tea.Cmd that waits for the session's next view.
// It yields nil once the session has closed.
func waitForView(s *board.Session) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-s.Views()
		if !ok {
			return nil
		}
		return viewMsg{session: s, view: v}
	}
}

// waitForFailure returns a tea.Cmd that waits for the session's next
// write failure.
func waitForFailure(s *board.Session) tea.Cmd {
	return func() tea.Msg {
		select {
		case err := <-s.Failures():
			return failureMsg{session: s, err: err}
		case <-s.Done():
			return nil
		}
	}
}

// openBoard returns a command that mounts the personal board, or the
// project board for projectID. An empty name is looked up.
func (m Model) openBoard(projectID, name string) tea.Cmd {
	scope, ok := m.scope(projectID)
	hub, logger := m.hub, m.log
	opts := board.Options{Logger: logger, IncludeArchived: m.showArchived}
	if m.identity != nil {
		opts.Author = m.identity.Author()
	}

	return func() tea.Msg {
		if !ok {
			return boardOpenedMsg{err: board.ErrSignedOut}
		}
		if name == "" {
			name = projectmgr.PersonalBoardName
			if projectID != "" {
				p, err := hub.Store().GetProject(context.Background(), scope.UserID, projectID)
				if err != nil {
					return boardOpenedMsg{err: fmt.Errorf("project %s: %w", projectID, err)}
				}
				name = p.Name
			}
		}
		sess, err := board.Open(context.Background(), hub, scope, opts)
		if err != nil {
			return boardOpenedMsg{err: err}
		}
		return boardOpenedMsg{session: sess, name: name}
	}
}

// loadDetail returns a command that gathers a task with its comments
// and activity.
func (m Model) loadDetail(taskID string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		if sess == nil {
			return detail.DetailLoadedMsg{Err: board.ErrSignedOut}
		}
		task, ok := sess.Task(taskID)
		if !ok {
			return detail.DetailLoadedMsg{Err: fmt.Errorf("task %s is no longer on this board", taskID)}
		}
		ctx := context.Background()
		comments, err := sess.Comments(ctx, taskID)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		activity, err := sess.Activity(ctx, taskID)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		return detail.DetailLoadedMsg{Task: task, Comments: comments, Activity: activity}
	}
}

func (m Model) addComment(taskID, text string) tea.Cmd {
	sess := m.session
	if sess == nil {
		return nil
	}
	reload := m.loadDetail(taskID)
	return func() tea.Msg {
		if _, err := sess.AddComment(context.Background(), taskID, text); err != nil {
			return writeDoneMsg{op: "Comment", err: err}
		}
		return reload()
	}
}

func (m Model) createTask(draft model.TaskDraft) tea.Cmd {
	sess := m.session
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		_, err := sess.CreateDraft(context.Background(), draft)
		return writeDoneMsg{op: "Create", err: err}
	}
}

func (m Model) editTask(id string, patch model.TaskPatch) tea.Cmd {
	sess := m.session
	if sess == nil || patch.IsEmpty() {
		return nil
	}
	return func() tea.Msg {
		return writeDoneMsg{op: "Edit", err: sess.Edit(context.Background(), id, patch)}
	}
}

// editComment rewrites a comment, then reloads the detail view.
func (m Model) editComment(taskID, commentID, text string) tea.Cmd {
	sess := m.session
	if sess == nil {
		return nil
	}
	reload := m.loadDetail(taskID)
	return func() tea.Msg {
		if err := sess.EditComment(context.Background(), commentID, text); err != nil {
			return writeDoneMsg{op: "Edit comment", err: err}
		}
		return reload()
	}
}

func (m Model) deleteComment(taskID, commentID string) tea.Cmd {
	sess := m.session
	if sess == nil {
		return nil
	}
	reload := m.loadDetail(taskID)
	return func() tea.Msg {
		if err := sess.DeleteComment(context.Background(), commentID); err != nil {
			return writeDoneMsg{op: "Delete comment", err: err}
		}
		return reload()
	}
}

func (m Model) deleteTask(id string) tea.Cmd {
	sess := m.session
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		return writeDoneMsg{op: "Delete", err: sess.Delete(context.Background(), id)}
	}
}

func (m Model) archiveTask(id string, archived bool) tea.Cmd {
	sess := m.session
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		return writeDoneMsg{op: "Archive", err: sess.SetArchived(context.Background(), id, archived)}
	}
}
