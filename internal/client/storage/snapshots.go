// Package storage defines the client-local persistence contracts:
// the offline snapshot cache that lets a reconnecting client render
// the last known board state before the subscription replays.
package storage

import (
	"context"
	"errors"

	"github.com/iudanet/canvasync/pkg/api"
)

// Common client storage errors.
var (
	// ErrSnapshotNotFound indicates no cached snapshot exists for the board
	ErrSnapshotNotFound = errors.New("board snapshot not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)

// SnapshotStorage caches the last delivered state of each board.
type SnapshotStorage interface {
	// SaveBoard stores a point-in-time snapshot of the board's objects.
	SaveBoard(ctx context.Context, boardID string, objects []api.CanvasObject) error

	// LoadBoard returns the cached snapshot.
	// Returns ErrSnapshotNotFound if the board was never cached.
	LoadBoard(ctx context.Context, boardID string) ([]api.CanvasObject, error)

	// DeleteBoard drops the cached snapshot.
	DeleteBoard(ctx context.Context, boardID string) error
}
