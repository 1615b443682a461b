package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/crafthub/internal/model"
)

const activityColumns = "id, user_id, project_id, task_id, author, action, kind, ref_id, created_at"

// AppendActivity records one history line. Entries are never updated.
func (s *SQLiteStore) AppendActivity(ctx context.Context, entry model.ActivityEntry) error {
	if entry.UserID == "" || entry.Action == "" {
		return fmt.Errorf("activity entry needs a user and an action")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Kind == "" {
		entry.Kind = model.ActivityKindTask
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.ProjectID, entry.TaskID, entry.Author,
		entry.Action, string(entry.Kind), entry.RefID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

// ListTaskActivity returns a task's history, newest first.
func (s *SQLiteStore) ListTaskActivity(ctx context.Context, userID, taskID string) ([]model.ActivityEntry, error) {
	entries := []model.ActivityEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+activityColumns+` FROM activity
		WHERE user_id = ? AND task_id = ?
		ORDER BY created_at DESC, seq DESC`,
		userID, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying task activity: %w", err)
	}
	return entries, nil
}

// ListUserActivity returns the user's most recent history lines.
func (s *SQLiteStore) ListUserActivity(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	entries := []model.ActivityEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+activityColumns+` FROM activity
		WHERE user_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	return entries, nil
}
