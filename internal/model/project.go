package model

import "time"

// Project is a grouping container with its own extended task board.
type Project struct {
	ID          string    `json:"id" db:"id" bson:"_id"`
	UserID      string    `json:"user_id" db:"user_id" bson:"user_id"`
	Name        string    `json:"name" db:"name" bson:"name"`
	Description string    `json:"description" db:"description" bson:"description"`
	Archived    bool      `json:"archived" db:"archived" bson:"archived"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}
