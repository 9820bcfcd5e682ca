package remote

import (
	"log/slog"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/pkg/api"
)

// Applier reconciles inbound object change events into the local
// state container. Remote state is authoritative: added/modified
// payloads overwrite local optimistic state at the whole-object
// granularity, unless the id is pending local delete.
type Applier struct {
	store  *canvas.Store
	logger *slog.Logger
}

// NewApplier creates an applier over the given store.
func NewApplier(store *canvas.Store, logger *slog.Logger) *Applier {
	return &Applier{store: store, logger: logger}
}

// HandleObject is the Handlers.OnObject callback.
func (a *Applier) HandleObject(kind api.ChangeKind, id string, object *api.CanvasObject) {
	switch kind {
	case api.ChangeAdded, api.ChangeModified:
		if object == nil {
			a.logger.Warn("object event without payload", "change", kind, "object_id", id)
			return
		}
		if err := object.Validate(); err != nil {
			a.logger.Warn("dropping malformed object event", "object_id", object.ID, "error", err)
			return
		}
		if !a.store.ApplyRemote(object) {
			a.logger.Debug("suppressed event for pending delete", "object_id", object.ID)
		}
	case api.ChangeRemoved:
		a.store.ApplyRemoteRemove(id)
	default:
		a.logger.Warn("unknown change kind", "change", kind, "object_id", id)
	}
}
