package boltdb

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/iudanet/canvasync/internal/client/storage"
	"github.com/iudanet/canvasync/pkg/api"
)

// boardSnapshot is the stored value: objects plus the encoding
// version, so a future format change can migrate old caches.
type boardSnapshot struct {
	Objects []api.CanvasObject `msgpack:"objects"`
	Version int                `msgpack:"version"`
}

const snapshotVersion = 1

// SaveBoard stores a point-in-time snapshot of the board's objects
func (s *Storage) SaveBoard(ctx context.Context, boardID string, objects []api.CanvasObject) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := msgpack.Marshal(&boardSnapshot{Version: snapshotVersion, Objects: objects})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketBoards)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		if err := bucket.Put([]byte(boardID), data); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// LoadBoard returns the cached snapshot for the board
func (s *Storage) LoadBoard(ctx context.Context, boardID string) ([]api.CanvasObject, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var snapshot boardSnapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBoards)
		if bucket == nil {
			return storage.ErrSnapshotNotFound
		}

		data := bucket.Get([]byte(boardID))
		if data == nil {
			return storage.ErrSnapshotNotFound
		}

		if err := msgpack.Unmarshal(data, &snapshot); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot.Objects, nil
}

// DeleteBoard drops the cached snapshot
func (s *Storage) DeleteBoard(ctx context.Context, boardID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBoards)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(boardID))
	})
}
