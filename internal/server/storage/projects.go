// Package storage defines the server-side persistence contracts.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/canvasync/pkg/api"
)

// Common storage errors
var (
	// ErrProjectNotFound indicates that no project exists under the id
	ErrProjectNotFound = errors.New("project not found")
)

// Project is a named point-in-time snapshot of a board.
type Project struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	Name      string
	Objects   []api.CanvasObject
	Thumbnail []byte
}

// ProjectStorage persists board snapshots. The core treats save as a
// full snapshot write and load as the source for a ReplaceAll; there
// is no incremental project diffing.
type ProjectStorage interface {
	// SaveProject stores or overwrites a snapshot.
	SaveProject(ctx context.Context, project *Project) error

	// GetProject retrieves a snapshot by id.
	// Returns ErrProjectNotFound if it does not exist.
	GetProject(ctx context.Context, id string) (*Project, error)

	// ListProjects returns metadata for all stored snapshots.
	ListProjects(ctx context.Context) ([]*Project, error)

	// DeleteProject removes a snapshot.
	DeleteProject(ctx context.Context, id string) error
}
