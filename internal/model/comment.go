package model

import "time"

// Comment is a discussion entry attached to a task.
type Comment struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	UserID    string    `json:"user_id" db:"user_id" bson:"user_id"`
	TaskID    string    `json:"task_id" db:"task_id" bson:"task_id"`
	Author    string    `json:"author" db:"author" bson:"author"`
	Text      string    `json:"text" db:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}
