package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/crafthub/internal/model"
)

const projectColumns = "id, user_id, name, description, archived, created_at, updated_at"

// CreateProject inserts a new project and returns its ID.
func (s *SQLiteStore) CreateProject(ctx context.Context, project model.Project) (string, error) {
	if project.UserID == "" {
		return "", fmt.Errorf("creating project: missing user")
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return "", fmt.Errorf("project name must not be empty")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.UserID, project.Name, project.Description,
		boolToInt(project.Archived), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("creating project: %w", err)
	}
	return project.ID, nil
}

// UpdateProject updates name, description and archived flag.
func (s *SQLiteStore) UpdateProject(ctx context.Context, project model.Project) error {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return fmt.Errorf("project name must not be empty")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, archived = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		project.Name, project.Description, boolToInt(project.Archived), s.now(),
		project.ID, project.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", project.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project together with its task collection.
func (s *SQLiteStore) DeleteProject(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM tasks WHERE user_id = ? AND project_id = ?", userID, id,
	); err != nil {
		return fmt.Errorf("deleting tasks of project %s: %w", id, err)
	}
	return tx.Commit()
}

// GetProject retrieves a single project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, userID, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.GetContext(ctx, &p,
		"SELECT "+projectColumns+" FROM projects WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return &p, nil
}

// ListProjects retrieves a user's projects, optionally including archived ones.
func (s *SQLiteStore) ListProjects(ctx context.Context, userID string, includeArchived bool) ([]model.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE user_id = ?"
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at"

	projects := []model.Project{}
	if err := s.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}
