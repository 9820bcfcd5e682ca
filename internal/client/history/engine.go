// Package history tracks client-local undo/redo as inverse-operation
// entries and replays them against the local state container and the
// mutation gateway. History is local: remote peers may have changed
// the same objects since, and replay simply writes over whatever is
// there (last write wins, like any other mutation).
package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/internal/client/gateway"
	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

// DefaultLimit bounds each stack; the oldest entries are dropped.
const DefaultLimit = 100

// Engine holds the two bounded stacks. All methods are safe for
// concurrent use, though in practice they are called from the same
// serialized mutation entry points as the store.
type Engine struct {
	store   *canvas.Store
	gateway *gateway.Gateway
	logger  *slog.Logger
	limit   int

	mu   sync.Mutex
	undo []*models.UndoOperation
	redo []*models.UndoOperation
}

// New creates an engine with the given stack bound (DefaultLimit when
// limit <= 0).
func New(store *canvas.Store, gw *gateway.Gateway, limit int, logger *slog.Logger) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{
		store:   store,
		gateway: gw,
		logger:  logger,
		limit:   limit,
	}
}

// Record pushes an operation at the moment a mutation completes and
// clears the redo stack. previousState is required to undo
// update/delete; newState is required to redo create/update. groupID
// ties together the operations of one agent command (empty for human
// mutations).
func (e *Engine) Record(kind models.OpKind, affectedIDs []string, previousState, newState []api.CanvasObject, origin models.Origin, groupID string) {
	op := &models.UndoOperation{
		ID:            uuid.New().String(),
		Kind:          kind,
		Timestamp:     time.Now().UTC(),
		Origin:        origin,
		GroupID:       groupID,
		AffectedIDs:   append([]string(nil), affectedIDs...),
		PreviousState: previousState,
		NewState:      newState,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.undo = append(e.undo, op.Clone())
	if len(e.undo) > e.limit {
		e.undo = e.undo[len(e.undo)-e.limit:]
	}
	e.redo = nil
}

// Undo reverses the most recent operation and moves it to the redo
// stack. An empty stack is a no-op reported as false, never an error.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	if len(e.undo) == 0 {
		e.mu.Unlock()
		return false
	}
	op := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, op)
	if len(e.redo) > e.limit {
		e.redo = e.redo[len(e.redo)-e.limit:]
	}
	e.mu.Unlock()

	switch op.Kind {
	case models.OpKindCreate:
		// Inverse-create: remove exactly the created objects.
		e.removeObjects(op.AffectedIDs)
	case models.OpKindDelete:
		// Recreate from the pre-delete snapshot.
		e.restoreObjects(op.PreviousState)
	case models.OpKindUpdate:
		// Reapply pre-update field values.
		e.restoreObjects(op.PreviousState)
	}

	e.logger.Debug("undo applied", "kind", op.Kind, "objects", len(op.AffectedIDs))
	return true
}

// Redo replays the most recently undone operation and moves it back
// to the undo stack.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	if len(e.redo) == 0 {
		e.mu.Unlock()
		return false
	}
	op := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, op)
	if len(e.undo) > e.limit {
		e.undo = e.undo[len(e.undo)-e.limit:]
	}
	e.mu.Unlock()

	switch op.Kind {
	case models.OpKindCreate:
		e.restoreObjects(op.NewState)
	case models.OpKindUpdate:
		e.restoreObjects(op.NewState)
	case models.OpKindDelete:
		e.removeObjects(op.AffectedIDs)
	}

	e.logger.Debug("redo applied", "kind", op.Kind, "objects", len(op.AffectedIDs))
	return true
}

// removeObjects deletes locally (optimistic, resurrection suppressed)
// and through the gateway.
func (e *Engine) removeObjects(ids []string) {
	for _, id := range ids {
		e.store.SuppressResurrection(id)
		e.store.Remove(id)
		e.gateway.Delete(id)
	}
}

// restoreObjects writes full snapshots locally and remotely. A full
// document write re-applies every field of the snapshot, which covers
// both recreate-after-delete and rollback-of-update.
func (e *Engine) restoreObjects(objects []api.CanvasObject) {
	for i := range objects {
		object := objects[i].Clone()
		e.store.ReleaseSuppression(object.ID)
		e.store.Add(object)
		e.gateway.Create(object)
	}
}

// CanUndo reports whether the undo stack is non-empty.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo) > 0
}

// CanRedo reports whether the redo stack is non-empty.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redo) > 0
}

// NextUndoGroup returns the group id of the operation Undo would
// consume next. Callers implementing whole-group undo for agent
// commands pop while the group id stays the same.
func (e *Engine) NextUndoGroup() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.undo) == 0 {
		return "", false
	}
	return e.undo[len(e.undo)-1].GroupID, true
}

// Depth returns the sizes of the undo and redo stacks.
func (e *Engine) Depth() (undo, redo int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo), len(e.redo)
}
