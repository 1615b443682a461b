package store

import (
	"context"
	"errors"

	"github.com/nhle/crafthub/internal/model"
)

// ErrNotFound is returned when a record addressed by ID does not exist
// in the caller's scope.
var ErrNotFound = errors.New("not found")

// Scope addresses one task collection: a user's personal board or one
// of that user's project boards. It is passed explicitly into every
// collection call instead of being looked up from ambient state.
type Scope struct {
	UserID    string
	ProjectID string
}

// Valid reports whether the scope names a user.
func (s Scope) Valid() bool { return s.UserID != "" }

// Topic returns the change-notification topic for the collection.
func (s Scope) Topic() string {
	if s.ProjectID == "" {
		return "crafthub:tasks:" + s.UserID
	}
	return "crafthub:tasks:" + s.UserID + ":" + s.ProjectID
}

// TaskQuery controls which tasks a collection listing returns. Results
// are always ordered by creation time ascending.
type TaskQuery struct {
	IncludeArchived bool
}

// Store defines the persistence interface for the document collections
// behind the board: tasks, projects, comments and activity history.
type Store interface {
	// === Tasks ===

	// CreateTask inserts a task and returns its store-assigned ID.
	CreateTask(ctx context.Context, scope Scope, draft model.TaskDraft) (string, error)
	UpdateTaskFields(ctx context.Context, scope Scope, id string, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, scope Scope, id string) error
	GetTask(ctx context.Context, scope Scope, id string) (*model.Task, error)
	ListTasks(ctx context.Context, scope Scope, q TaskQuery) ([]model.Task, error)

	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (string, error)
	UpdateProject(ctx context.Context, project model.Project) error
	DeleteProject(ctx context.Context, userID, id string) error
	GetProject(ctx context.Context, userID, id string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string, includeArchived bool) ([]model.Project, error)

	// === Comments ===

	AddComment(ctx context.Context, comment model.Comment) (string, error)
	UpdateComment(ctx context.Context, userID, id, text string) error
	DeleteComment(ctx context.Context, userID, id string) error
	ListComments(ctx context.Context, userID, taskID string) ([]model.Comment, error)

	// === Activity ===

	AppendActivity(ctx context.Context, entry model.ActivityEntry) error
	ListTaskActivity(ctx context.Context, userID, taskID string) ([]model.ActivityEntry, error)
	ListUserActivity(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error)

	Close() error
}
