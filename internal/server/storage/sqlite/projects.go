package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/canvasync/internal/server/storage"
	"github.com/iudanet/canvasync/pkg/api"
)

// SaveProject stores or overwrites a snapshot
func (s *Storage) SaveProject(ctx context.Context, project *storage.Project) error {
	objectsJSON, err := json.Marshal(project.Objects)
	if err != nil {
		return fmt.Errorf("failed to marshal objects: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO projects (id, name, objects, thumbnail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			objects = excluded.objects,
			thumbnail = excluded.thumbnail,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		project.ID, project.Name, string(objectsJSON), project.Thumbnail, now, now)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	return nil
}

// GetProject retrieves a snapshot by id
func (s *Storage) GetProject(ctx context.Context, id string) (*storage.Project, error) {
	query := `
		SELECT id, name, objects, thumbnail, created_at, updated_at
		FROM projects
		WHERE id = ?
	`

	var (
		project     storage.Project
		objectsJSON string
		thumbnail   sql.Null[[]byte]
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&objectsJSON,
		&thumbnail,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if thumbnail.Valid {
		project.Thumbnail = thumbnail.V
	}
	project.Objects = []api.CanvasObject{}
	if err := json.Unmarshal([]byte(objectsJSON), &project.Objects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal objects: %w", err)
	}

	return &project, nil
}

// ListProjects returns metadata for all stored snapshots (objects and
// thumbnails are not loaded)
func (s *Storage) ListProjects(ctx context.Context) ([]*storage.Project, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM projects
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*storage.Project
	for rows.Next() {
		var project storage.Project
		if err := rows.Scan(&project.ID, &project.Name, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// DeleteProject removes a snapshot
func (s *Storage) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrProjectNotFound
	}

	return nil
}
