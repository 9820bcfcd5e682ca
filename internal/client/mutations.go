package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/canvasync/internal/client/lockmgr"
	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

// OnCreateObject applies a create optimistically and persists it.
// Missing identity fields are filled in (id, owner, timestamps,
// z-order on top of the stack). The returned id identifies the object
// for follow-up calls. Persist failures are logged by the gateway and
// never surface here; the object stays visible locally until a remote
// tombstone says otherwise.
func (c *Client) OnCreateObject(object *api.CanvasObject) (string, error) {
	if !c.connected() {
		return "", ErrNotConnected
	}
	if object.ID == "" {
		object.ID = uuid.New().String()
	}
	if object.OwnerID == "" {
		object.OwnerID = c.cfg.Session.UserID
	}
	now := time.Now().UTC()
	if object.CreatedAt.IsZero() {
		object.CreatedAt = now
	}
	object.UpdatedAt = now
	if object.Z == 0 {
		object.Z = c.store.MaxZ() + 1
	}
	if err := object.Validate(); err != nil {
		return "", fmt.Errorf("invalid object: %w", err)
	}

	c.store.Add(object)
	c.gateway.Create(object)
	return object.ID, nil
}

// OnUpdateObject applies a partial update optimistically and
// schedules the throttled write. Updates to unknown ids are silent
// no-ops, matching the state container contract.
func (c *Client) OnUpdateObject(id string, patch *api.ObjectPatch) {
	if !c.connected() {
		return
	}
	if !c.store.Contains(id) {
		return
	}
	c.store.Update(id, patch)
	c.gateway.Update(id, patch)
}

// OnDeleteObject removes the object optimistically, suppresses
// resurrection from stale inbound events, and issues the best-effort
// remote delete.
func (c *Client) OnDeleteObject(id string) {
	if !c.connected() {
		return
	}
	c.store.SuppressResurrection(id)
	c.store.Remove(id)
	c.gateway.Delete(id)
}

// Select replaces the local selection set.
func (c *Client) Select(ids []string) {
	c.store.Select(ids)
}

// OnRecordCreate books a completed create for undo.
func (c *Client) OnRecordCreate(ids []string, newState []api.CanvasObject, origin models.Origin, groupID string) {
	if !c.connected() {
		return
	}
	c.history.Record(models.OpKindCreate, ids, nil, newState, origin, groupID)
}

// OnRecordUpdate books a completed update for undo.
func (c *Client) OnRecordUpdate(ids []string, previousState, newState []api.CanvasObject, origin models.Origin, groupID string) {
	if !c.connected() {
		return
	}
	c.history.Record(models.OpKindUpdate, ids, previousState, newState, origin, groupID)
}

// OnRecordDelete books a completed delete for undo.
func (c *Client) OnRecordDelete(ids []string, previousState []api.CanvasObject, origin models.Origin, groupID string) {
	if !c.connected() {
		return
	}
	c.history.Record(models.OpKindDelete, ids, previousState, nil, origin, groupID)
}

// Undo reverses the latest recorded mutation. False means nothing to
// undo.
func (c *Client) Undo() bool { return c.connected() && c.history.Undo() }

// Redo replays the latest undone mutation. False means nothing to
// redo.
func (c *Client) Redo() bool { return c.connected() && c.history.Redo() }

// AcquireLock takes the advisory lock for a gesture. A false result
// is contention, not an error; the caller may proceed anyway and
// surface a warning, since storage conflict resolution stays
// last-write-wins either way.
func (c *Client) AcquireLock(ctx context.Context, objectID string, mode lockmgr.Mode) (bool, error) {
	if !c.connected() {
		return false, ErrNotConnected
	}
	return c.locks.Acquire(ctx, objectID, mode)
}

// ReleaseLock ends a gesture. Always call it on every gesture exit
// path; it stops the renewal loop even when the final network write
// fails.
func (c *Client) ReleaseLock(ctx context.Context, objectID string) error {
	if !c.connected() {
		return ErrNotConnected
	}
	return c.locks.Release(ctx, objectID)
}

// MoveCursor reports a local cursor movement (throttled remotely).
func (c *Client) MoveCursor(ctx context.Context, x, y float64) {
	if !c.connected() {
		return
	}
	c.presence.MoveCursor(ctx, x, y)
}

// SweepPresence reclaims stale presence records.
func (c *Client) SweepPresence(ctx context.Context) int {
	if !c.connected() {
		return 0
	}
	return c.presence.Sweep(ctx)
}

// LoadProject replaces the local board state with a stored snapshot.
func (c *Client) LoadProject(ctx context.Context, projectID string) (*api.ProjectMetadata, error) {
	if c.cfg.Projects == nil {
		return nil, fmt.Errorf("no project store configured")
	}
	resp, err := c.cfg.Projects.LoadProject(ctx, c.cfg.Token, projectID)
	if err != nil {
		return nil, err
	}
	c.store.ReplaceAll(resp.Objects)
	return &resp.Metadata, nil
}

// SaveProject stores a point-in-time snapshot of the current state.
func (c *Client) SaveProject(ctx context.Context, projectID, name string, thumbnail []byte) error {
	if c.cfg.Projects == nil {
		return fmt.Errorf("no project store configured")
	}
	objects := c.store.List()
	snapshot := make([]api.CanvasObject, 0, len(objects))
	for _, object := range objects {
		snapshot = append(snapshot, *object)
	}
	return c.cfg.Projects.SaveProject(ctx, c.cfg.Token, projectID, api.SaveProjectRequest{
		Name:      name,
		Objects:   snapshot,
		Thumbnail: thumbnail,
	})
}
