package model

import (
	"strings"
	"time"
)

// Status is the lifecycle stage of a task. It is the sole partition key
// for board columns.
type Status string

const (
	StatusTodo    Status = "todo"
	StatusDoing   Status = "doing"
	StatusReview  Status = "review"
	StatusBlocked Status = "blocked"
	StatusDone    Status = "done"
)

// PersonalColumns is the column set of the personal task board.
var PersonalColumns = []Status{StatusTodo, StatusDoing, StatusDone}

// ProjectColumns is the extended column set used by project boards.
var ProjectColumns = []Status{
	StatusTodo, StatusDoing, StatusReview, StatusBlocked, StatusDone,
}

var statusLabels = map[Status]string{
	StatusTodo:    "To Do",
	StatusDoing:   "In Progress",
	StatusReview:  "Review",
	StatusBlocked: "Blocked",
	StatusDone:    "Done",
}

// Label returns the human-readable column title for s.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// ParseStatus normalizes raw input. Unknown or empty values yield
// StatusTodo and false.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return StatusTodo, false
	}
	return s, true
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the priorities in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Label returns a display label for p.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	default:
		return "Medium"
	}
}

// Task is a single card on a board.
type Task struct {
	// ID is assigned by the store and never reused.
	ID string `json:"id" db:"id" bson:"_id"`

	// UserID is the owner; every collection is scoped by it.
	UserID string `json:"user_id" db:"user_id" bson:"user_id"`

	// ProjectID is empty for tasks on the personal board.
	ProjectID string `json:"project_id,omitempty" db:"project_id" bson:"project_id"`

	Title       string     `json:"title" db:"title" bson:"title"`
	Description string     `json:"description,omitempty" db:"description" bson:"description"`
	Status      Status     `json:"status" db:"status" bson:"status"`
	Priority    Priority   `json:"priority" db:"priority" bson:"priority"`
	Archived    bool       `json:"archived" db:"archived" bson:"archived"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date" bson:"due_date,omitempty"`

	// CreatedAt is assigned by the store and is monotonic per collection.
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// IsActive reports whether the task counts toward progress.
func (t Task) IsActive() bool { return !t.Archived }

// TaskDraft carries the caller-provided fields for a new task.
type TaskDraft struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
}

// TaskPatch is a partial update. Nil fields are left untouched, so a
// status move writes a single field.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Archived    *bool
	DueDate     **time.Time
}

// IsEmpty reports whether the patch writes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Archived == nil && p.DueDate == nil
}

// StatusPatch returns a patch that only sets the status.
func StatusPatch(s Status) TaskPatch {
	return TaskPatch{Status: &s}
}

// ArchivedPatch returns a patch that only sets the archived flag.
func ArchivedPatch(archived bool) TaskPatch {
	return TaskPatch{Archived: &archived}
}
