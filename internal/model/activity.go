package model

import "time"

// ActivityKind identifies what an activity entry refers to.
type ActivityKind string

const (
	ActivityKindTask    ActivityKind = "task"
	ActivityKindProject ActivityKind = "project"
	ActivityKindComment ActivityKind = "comment"
)

// ActivityEntry is one line of a user's or a task's activity history.
type ActivityEntry struct {
	ID        string       `json:"id" db:"id" bson:"_id"`
	UserID    string       `json:"user_id" db:"user_id" bson:"user_id"`
	ProjectID string       `json:"project_id,omitempty" db:"project_id" bson:"project_id"`
	TaskID    string       `json:"task_id,omitempty" db:"task_id" bson:"task_id"`
	Author    string       `json:"author" db:"author" bson:"author"`
	Action    string       `json:"action" db:"action" bson:"action"`
	Kind      ActivityKind `json:"kind" db:"kind" bson:"kind"`
	RefID     string       `json:"ref_id,omitempty" db:"ref_id" bson:"ref_id"`
	CreatedAt time.Time    `json:"created_at" db:"created_at" bson:"created_at"`
}
