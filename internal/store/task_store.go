package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/crafthub/internal/model"
)

const taskColumns = `id, user_id, project_id, title, description, status, priority,
	archived, due_date, created_at, updated_at`

// CreateTask inserts a task into the scope's collection. Missing status
// and priority fall back to todo and medium. CreatedAt is strictly
// greater than that of any earlier task in the same collection.
func (s *SQLiteStore) CreateTask(ctx context.Context, scope Scope, draft model.TaskDraft) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("creating task: missing user")
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return "", fmt.Errorf("task title must not be empty")
	}
	status, _ := model.ParseStatus(string(draft.Status))
	priority := draft.Priority
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now()
	var last time.Time
	err = tx.GetContext(ctx, &last, `
		SELECT created_at FROM tasks
		WHERE user_id = ? AND project_id = ?
		ORDER BY seq DESC LIMIT 1`,
		scope.UserID, scope.ProjectID,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("reading latest task time: %w", err)
	}
	if !now.After(last) {
		now = last.Add(time.Microsecond)
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		id, scope.UserID, scope.ProjectID, title, draft.Description,
		string(status), string(priority), draft.DueDate, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing task: %w", err)
	}
	return id, nil
}

// UpdateTaskFields writes only the fields present in patch.
func (s *SQLiteStore) UpdateTaskFields(ctx context.Context, scope Scope, id string, patch model.TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("task title must not be empty")
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return fmt.Errorf("invalid priority %q", *patch.Priority)
		}
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	if patch.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, boolToInt(*patch.Archived))
	}
	if patch.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *patch.DueDate)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id, scope.UserID, scope.ProjectID)

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+
			" WHERE id = ? AND user_id = ? AND project_id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task and, through the foreign key, its comments.
func (s *SQLiteStore) DeleteTask(ctx context.Context, scope Scope, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ? AND project_id = ?",
		id, scope.UserID, scope.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTask retrieves a single task from the scope's collection.
func (s *SQLiteStore) GetTask(ctx context.Context, scope Scope, id string) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ? AND project_id = ?",
		id, scope.UserID, scope.ProjectID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// ListTasks returns the collection ordered by creation time ascending.
func (s *SQLiteStore) ListTasks(ctx context.Context, scope Scope, q TaskQuery) ([]model.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ? AND project_id = ?"
	if !q.IncludeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at ASC, seq ASC"

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, scope.UserID, scope.ProjectID); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}
