package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/crafthub/internal/feed"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
)

// ErrSignedOut is returned when a board is opened without a user.
var ErrSignedOut = errors.New("not signed in")

const failureBuffer = 8

// Options configures Actions and Session.
type Options struct {
	// Author is recorded on activity and comments.
	Author string

	Logger *logrus.Logger

	// Dispatch runs status writes. Nil means GoDispatcher.
	Dispatch Dispatcher

	IncludeArchived bool
}

// Actions are the write operations of one board. They need no live
// subscription, so request handlers use them directly.
type Actions struct {
	scope    store.Scope
	columns  []model.Status
	coll     *feed.Collection
	records  store.Store
	author   string
	log      *logrus.Entry
	coord    *Coordinator
	failures chan error
}

// NewActions binds the board operations for scope. A scope without a
// user yields ErrSignedOut.
func NewActions(hub *feed.Hub, scope store.Scope, opts Options) (*Actions, error) {
	if !scope.Valid() {
		return nil, ErrSignedOut
	}
	coll, err := hub.Collection(scope)
	if err != nil {
		return nil, fmt.Errorf("opening board: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	a := &Actions{
		scope:    scope,
		columns:  ColumnsFor(scope),
		coll:     coll,
		records:  hub.Store(),
		author:   opts.Author,
		log:      opts.Logger.WithFields(logrus.Fields{"user_id": scope.UserID, "project_id": scope.ProjectID}),
		failures: make(chan error, failureBuffer),
	}
	a.coord = NewCoordinator(a.columns, coll, opts.Dispatch, a.moved)
	return a, nil
}

// ColumnsFor returns the column set of the board addressed by scope.
func ColumnsFor(scope store.Scope) []model.Status {
	if scope.ProjectID != "" {
		return model.ProjectColumns
	}
	return model.PersonalColumns
}

// Scope returns the collection address of the board.
func (a *Actions) Scope() store.Scope { return a.scope }

// IsProject reports whether this is a project board.
func (a *Actions) IsProject() bool { return a.scope.ProjectID != "" }

// Failures reports write errors. Nothing is rolled back; the next
// snapshot stays authoritative.
func (a *Actions) Failures() <-chan error { return a.failures }

// Create adds a task with a trimmed title. A blank title is declined
// silently and yields an empty ID.
func (a *Actions) Create(ctx context.Context, title string, priority model.Priority) (string, error) {
	return a.CreateDraft(ctx, model.TaskDraft{Title: title, Priority: priority})
}

// CreateDraft is Create with description, due date and, on project
// boards, an initial status. Personal boards always start tasks in todo.
func (a *Actions) CreateDraft(ctx context.Context, draft model.TaskDraft) (string, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return "", nil
	}
	if !draft.Priority.Valid() {
		draft.Priority = model.PriorityMedium
	}
	if !a.IsProject() || !slices.Contains(a.columns, draft.Status) {
		draft.Status = model.StatusTodo
	}

	id, err := a.coll.Create(ctx, draft)
	if err != nil {
		a.log.WithError(err).WithField("op", "create").Error("task write failed")
		return "", err
	}
	a.logActivity(ctx, id, "task created")
	return id, nil
}

// Move is the drop handler. It reports whether a write was issued.
func (a *Actions) Move(ctx context.Context, taskID string, from, to model.Status) bool {
	return a.coord.Drop(ctx, Drop{TaskID: taskID, Source: from, Destination: to})
}

func (a *Actions) moved(res MoveResult) {
	if res.Err != nil {
		a.log.WithError(res.Err).WithFields(logrus.Fields{
			"op": "move", "task_id": res.TaskID, "to": res.To,
		}).Error("task write failed")
		a.report(res.Err)
		return
	}
	a.logActivity(context.Background(), res.TaskID, statusChanged(res.To))
}

// Edit applies a partial patch. A blank title, or a status the board
// has no column for, is dropped from the patch.
func (a *Actions) Edit(ctx context.Context, id string, patch model.TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			patch.Title = nil
		} else {
			patch.Title = &title
		}
	}
	if patch.Status != nil && !slices.Contains(a.columns, *patch.Status) {
		patch.Status = nil
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		patch.Priority = nil
	}
	if patch.IsEmpty() {
		return nil
	}

	if err := a.coll.UpdateFields(ctx, id, patch); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": "edit", "task_id": id}).Error("task write failed")
		return err
	}
	if patch.Status != nil {
		a.logActivity(ctx, id, statusChanged(*patch.Status))
	}
	return nil
}

// SetArchived archives or restores a task.
func (a *Actions) SetArchived(ctx context.Context, id string, archived bool) error {
	return a.Edit(ctx, id, model.ArchivedPatch(archived))
}

// Delete removes a task unconditionally. Deleting a task that is already
// gone is not an error.
func (a *Actions) Delete(ctx context.Context, id string) error {
	err := a.coll.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": "delete", "task_id": id}).Error("task write failed")
	}
	return err
}

// AddComment attaches a trimmed comment to a task. Blank text is
// declined silently.
func (a *Actions) AddComment(ctx context.Context, taskID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	id, err := a.records.AddComment(ctx, model.Comment{
		UserID: a.scope.UserID,
		TaskID: taskID,
		Author: a.author,
		Text:   text,
	})
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": "comment", "task_id": taskID}).Error("comment write failed")
		return "", err
	}
	a.Record(ctx, model.ActivityKindComment, id, "comment added")
	return id, nil
}

// EditComment replaces a comment's text. Blank text is ignored.
func (a *Actions) EditComment(ctx context.Context, commentID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := a.records.UpdateComment(ctx, a.scope.UserID, commentID, text); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": "edit_comment", "comment_id": commentID}).Error("comment write failed")
		return err
	}
	a.Record(ctx, model.ActivityKindComment, commentID, "comment edited")
	return nil
}

// DeleteComment removes a comment. A comment that is already gone is not
// an error.
func (a *Actions) DeleteComment(ctx context.Context, commentID string) error {
	err := a.records.DeleteComment(ctx, a.scope.UserID, commentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": "delete_comment", "comment_id": commentID}).Error("comment write failed")
		return err
	}
	a.Record(ctx, model.ActivityKindComment, commentID, "comment deleted")
	return nil
}

// Comments lists a task's comments, oldest first.
func (a *Actions) Comments(ctx context.Context, taskID string) ([]model.Comment, error) {
	return a.records.ListComments(ctx, a.scope.UserID, taskID)
}

// Activity lists a task's history, newest first.
func (a *Actions) Activity(ctx context.Context, taskID string) ([]model.ActivityEntry, error) {
	return a.records.ListTaskActivity(ctx, a.scope.UserID, taskID)
}

// UserActivity lists the user's most recent activity across all boards,
// newest first.
func (a *Actions) UserActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	return a.records.ListUserActivity(ctx, a.scope.UserID, limit)
}

// Record appends a line to the user's activity log. Failures are logged,
// never returned.
func (a *Actions) Record(ctx context.Context, kind model.ActivityKind, refID, action string) {
	RecordActivity(ctx, a.records, a.log, model.ActivityEntry{
		UserID:    a.scope.UserID,
		ProjectID: a.scope.ProjectID,
		Author:    a.author,
		Action:    action,
		Kind:      kind,
		RefID:     refID,
	})
}

// RecordActivity appends entry to the store. It never fails the caller.
func RecordActivity(ctx context.Context, s store.Store, log logrus.FieldLogger, entry model.ActivityEntry) {
	if err := s.AppendActivity(context.WithoutCancel(ctx), entry); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"kind": entry.Kind, "ref_id": entry.RefID}).Warn("recording activity")
	}
}

// logActivity appends a history line on project boards. It never fails
// the caller.
func (a *Actions) logActivity(ctx context.Context, taskID, action string) {
	if !a.IsProject() {
		return
	}
	RecordActivity(ctx, a.records, a.log, model.ActivityEntry{
		UserID:    a.scope.UserID,
		ProjectID: a.scope.ProjectID,
		TaskID:    taskID,
		Author:    a.author,
		Action:    action,
		Kind:      model.ActivityKindTask,
		RefID:     taskID,
	})
}

func (a *Actions) report(err error) {
	select {
	case a.failures <- err:
	default:
		a.log.WithError(err).Debug("failure channel full, dropping")
	}
}

func statusChanged(to model.Status) string {
	return fmt.Sprintf("status changed to %q", to.Label())
}
