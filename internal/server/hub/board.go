// Package hub hosts the shared object and presence collections. Each
// board serializes every mutation under one mutex and fans events out
// through per-subscriber ordered queues, which preserves per-object
// event order end to end; cross-object ordering is explicitly not
// promised to clients.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/canvasync/pkg/api"
)

// Board is one shared canvas: its object map, presence map and
// subscriber set.
type Board struct {
	id     string
	logger *slog.Logger

	mu          sync.Mutex
	objects     map[string]*api.CanvasObject
	presence    map[string]*api.PresenceRecord
	subscribers map[*subscriber]struct{}
}

func newBoard(id string, logger *slog.Logger) *Board {
	return &Board{
		id:          id,
		logger:      logger,
		objects:     make(map[string]*api.CanvasObject),
		presence:    make(map[string]*api.PresenceRecord),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// subscribe registers the subscriber and captures the replay snapshot:
// every object as an added event, every presence record, then
// snapshot_end. Capture and registration happen under the board mutex,
// so no live event can interleave with or precede the snapshot. The
// snapshot is staged on the subscriber instead of going through the
// live-event queue: replay size must not be bounded by the send
// buffer, or any board larger than the buffer would disconnect every
// new subscriber. The write pump drains the snapshot before any
// queued live event.
func (b *Board) subscribe(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]*api.ServerMessage, 0, len(b.objects)+len(b.presence)+1)
	for _, object := range b.objects {
		snapshot = append(snapshot, &api.ServerMessage{
			Event:  api.EventObject,
			Change: api.ChangeAdded,
			ID:     object.ID,
			Object: object.Clone(),
		})
	}
	for _, record := range b.presence {
		snapshot = append(snapshot, &api.ServerMessage{Event: api.EventPresence, Presence: record.Clone()})
	}
	snapshot = append(snapshot, &api.ServerMessage{Event: api.EventSnapshotEnd})
	sub.snapshot = snapshot

	b.subscribers[sub] = struct{}{}
}

func (b *Board) unsubscribe(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
}

// broadcast enqueues to every subscriber, including the originator:
// clients rely on their own echo to confirm persistence. Callers hold
// b.mu.
func (b *Board) broadcast(msg *api.ServerMessage) {
	for sub := range b.subscribers {
		sub.enqueue(msg)
	}
}

// applyCreate upserts a full document. A create for an existing id is
// a full overwrite (document semantics) and is broadcast as modified.
func (b *Board) applyCreate(object *api.CanvasObject) {
	if err := object.Validate(); err != nil {
		b.logger.Warn("rejecting malformed create", "board", b.id, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	change := api.ChangeAdded
	if _, exists := b.objects[object.ID]; exists {
		change = api.ChangeModified
	}
	stored := object.Clone()
	stored.UpdatedAt = time.Now().UTC()
	b.objects[object.ID] = stored

	b.broadcast(&api.ServerMessage{
		Event:  api.EventObject,
		Change: change,
		ID:     stored.ID,
		Object: stored.Clone(),
	})
}

// applyUpdate merges a partial patch into an existing document;
// unspecified fields are preserved. Updates for unknown ids are
// dropped: the object was deleted, and resurrecting it from a stale
// patch would fight the deleting client's tombstone.
func (b *Board) applyUpdate(id string, patch *api.ObjectPatch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	object, ok := b.objects[id]
	if !ok {
		b.logger.Debug("dropping update for unknown object", "board", b.id, "object_id", id)
		return
	}
	patch.Apply(object)

	b.broadcast(&api.ServerMessage{
		Event:  api.EventObject,
		Change: api.ChangeModified,
		ID:     id,
		Object: object.Clone(),
	})
}

// applyDelete removes a document. Deleting an unknown id still
// broadcasts removed, so a client whose delete raced another's sees
// its tombstone confirmed either way.
func (b *Board) applyDelete(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, id)
	b.broadcast(&api.ServerMessage{
		Event:  api.EventObject,
		Change: api.ChangeRemoved,
		ID:     id,
	})
}

func (b *Board) putPresence(record *api.PresenceRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presence[record.UserID] = record.Clone()
	b.broadcast(&api.ServerMessage{Event: api.EventPresence, Presence: record.Clone()})
}

func (b *Board) deletePresence(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.presence[userID]; !ok {
		return
	}
	delete(b.presence, userID)
	b.broadcast(&api.ServerMessage{Event: api.EventPresenceRemoved, ID: userID})
}

// sweepPresence reclaims records whose heartbeat age exceeds the
// liveness window, covering clients that never shut down cleanly.
func (b *Board) sweepPresence(now time.Time, window time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	swept := 0
	for id, record := range b.presence {
		if record.Stale(now, window) {
			delete(b.presence, id)
			b.broadcast(&api.ServerMessage{Event: api.EventPresenceRemoved, ID: id})
			swept++
		}
	}
	return swept
}

// Objects returns a point-in-time snapshot in insertion-independent
// (map) order; the project save path sorts as needed.
func (b *Board) Objects() []api.CanvasObject {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]api.CanvasObject, 0, len(b.objects))
	for _, object := range b.objects {
		out = append(out, *object.Clone())
	}
	return out
}

// ReplaceObjects swaps the whole object set, e.g. when a project
// snapshot is loaded into the board. Every subscriber receives the
// new state as removed+added events.
func (b *Board) ReplaceObjects(objects []api.CanvasObject) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id := range b.objects {
		b.broadcast(&api.ServerMessage{Event: api.EventObject, Change: api.ChangeRemoved, ID: id})
	}
	b.objects = make(map[string]*api.CanvasObject, len(objects))
	for i := range objects {
		stored := objects[i].Clone()
		b.objects[stored.ID] = stored
		b.broadcast(&api.ServerMessage{
			Event:  api.EventObject,
			Change: api.ChangeAdded,
			ID:     stored.ID,
			Object: stored.Clone(),
		})
	}
}
