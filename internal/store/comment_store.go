package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/crafthub/internal/model"
)

// AddComment attaches a comment to a task owned by the same user.
func (s *SQLiteStore) AddComment(ctx context.Context, comment model.Comment) (string, error) {
	text := strings.TrimSpace(comment.Text)
	if text == "" {
		return "", fmt.Errorf("comment text must not be empty")
	}

	var owned int
	if err := s.db.GetContext(ctx, &owned,
		"SELECT COUNT(*) FROM tasks WHERE id = ? AND user_id = ?",
		comment.TaskID, comment.UserID,
	); err != nil {
		return "", fmt.Errorf("checking task %s: %w", comment.TaskID, err)
	}
	if owned == 0 {
		return "", fmt.Errorf("task %s: %w", comment.TaskID, ErrNotFound)
	}

	id := uuid.New().String()
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, user_id, task_id, author, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, comment.UserID, comment.TaskID, comment.Author, text, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("adding comment: %w", err)
	}
	return id, nil
}

// UpdateComment replaces a comment's text.
func (s *SQLiteStore) UpdateComment(ctx context.Context, userID, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("comment text must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE comments SET text = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		text, s.now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating comment %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteComment removes a comment.
func (s *SQLiteStore) DeleteComment(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM comments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListComments returns a task's comments, oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, userID, taskID string) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := s.db.SelectContext(ctx, &comments, `
		SELECT id, user_id, task_id, author, text, created_at, updated_at
		FROM comments WHERE task_id = ? AND user_id = ?
		ORDER BY created_at ASC`,
		taskID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	return comments, nil
}
