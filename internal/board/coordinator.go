package board

import (
	"context"
	"slices"
	"time"

	"github.com/nhle/crafthub/internal/model"
)

// writeTimeout bounds a dispatched status write.
const writeTimeout = 15 * time.Second

// Updater writes a partial task patch.
type Updater interface {
	UpdateFields(ctx context.Context, id string, patch model.TaskPatch) error
}

// Dispatcher runs fn without blocking the caller.
type Dispatcher func(fn func())

// GoDispatcher runs fn on a new goroutine.
func GoDispatcher(fn func()) { go fn() }

// Drop describes a finished drag gesture. An empty Destination means the
// task was released outside any column.
type Drop struct {
	TaskID      string
	Source      model.Status
	Destination model.Status
}

// MoveResult is reported once a dispatched status write completes.
type MoveResult struct {
	TaskID string
	To     model.Status
	Err    error
}

// Coordinator turns drops into status writes. It never rolls back and
// never reorders within a column.
type Coordinator struct {
	columns  []model.Status
	updater  Updater
	dispatch Dispatcher
	onResult func(MoveResult)
}

// NewCoordinator creates a coordinator for a board with the given column
// set. A nil dispatch uses GoDispatcher; onResult may be nil.
func NewCoordinator(columns []model.Status, u Updater, dispatch Dispatcher, onResult func(MoveResult)) *Coordinator {
	if dispatch == nil {
		dispatch = GoDispatcher
	}
	return &Coordinator{
		columns:  slices.Clone(columns),
		updater:  u,
		dispatch: dispatch,
		onResult: onResult,
	}
}

// Drop issues at most one status-only write and reports whether it did.
// Cancelled drops, drops on the source column and drops on a column the
// board does not show issue nothing.
func (c *Coordinator) Drop(ctx context.Context, d Drop) bool {
	if d.TaskID == "" || d.Destination == "" || d.Destination == d.Source {
		return false
	}
	if !slices.Contains(c.columns, d.Destination) {
		return false
	}

	writeCtx := context.WithoutCancel(ctx)
	c.dispatch(func() {
		ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
		defer cancel()

		err := c.updater.UpdateFields(ctx, d.TaskID, model.StatusPatch(d.Destination))
		if c.onResult != nil {
			c.onResult(MoveResult{TaskID: d.TaskID, To: d.Destination, Err: err})
		}
	})
	return true
}
