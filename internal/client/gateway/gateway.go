// Package gateway is the outbound persistence path for local
// mutations. Creates and deletes are fire-and-forget; updates are
// throttled per object id so continuous interactions like dragging
// coalesce into one write per interval.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/internal/client/remote"
	"github.com/iudanet/canvasync/pkg/api"
)

const (
	// DefaultUpdateInterval bounds outbound update volume per object.
	DefaultUpdateInterval = 50 * time.Millisecond

	// DefaultSuppressTimeout releases a pending-delete tombstone if no
	// removed confirmation ever arrives.
	DefaultSuppressTimeout = 10 * time.Second
)

// Config tunes the gateway.
type Config struct {
	UpdateInterval  time.Duration
	SuppressTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	if c.SuppressTimeout <= 0 {
		c.SuppressTimeout = DefaultSuppressTimeout
	}
	return c
}

// Gateway persists local create/update/delete intents to the shared
// collection. Failures are logged, never retried: a missed write is
// repaired by the next remote snapshot or a user retry, so the caller
// is never blocked on network state.
type Gateway struct {
	collection remote.Collection
	store      *canvas.Store
	logger     *slog.Logger
	cfg        Config

	mu       sync.Mutex
	pending  map[string]*pendingUpdate
	inFlight int
	closed   bool
}

// pendingUpdate accumulates patches for one object id within the
// current throttle window. Latest field values win.
type pendingUpdate struct {
	patch *api.ObjectPatch
	timer *time.Timer
}

// New creates a gateway over the collection.
func New(collection remote.Collection, store *canvas.Store, cfg Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		collection: collection,
		store:      store,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		pending:    make(map[string]*pendingUpdate),
	}
}

// Create persists a full object document asynchronously. The caller
// has already applied the object locally; on failure the object stays
// visible until a remote tombstone arrives.
func (g *Gateway) Create(object *api.CanvasObject) {
	doc := object.Clone()
	g.launch()
	go func() {
		if err := g.collection.CreateObject(context.Background(), doc); err != nil {
			g.logger.Error("create not persisted", "object_id", doc.ID, "error", err)
			g.fail()
			return
		}
		g.ack()
	}()
}

// Update schedules a throttled partial write. Bursts within one
// interval merge into a single outbound patch carrying the latest
// field values (trailing edge).
func (g *Gateway) Update(id string, patch *api.ObjectPatch) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	if p, ok := g.pending[id]; ok {
		p.patch.Merge(patch)
		return
	}

	merged := &api.ObjectPatch{}
	merged.Merge(patch)
	g.pending[id] = &pendingUpdate{
		patch: merged,
		timer: time.AfterFunc(g.cfg.UpdateInterval, func() { g.flush(id) }),
	}
}

// flush sends the coalesced patch for id.
func (g *Gateway) flush(id string) {
	g.mu.Lock()
	p, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
		g.inFlight++
	}
	g.mu.Unlock()

	if !ok {
		return
	}
	if p.patch.IsZero() {
		g.ack()
		return
	}
	if err := g.collection.UpdateObject(context.Background(), id, p.patch); err != nil {
		g.logger.Error("update not persisted", "object_id", id, "error", err)
		g.fail()
		return
	}
	g.ack()
}

// Delete issues a best-effort delete. The caller has already removed
// the object locally and suppressed resurrection; this clears any
// advisory lock first (non-fatal), then deletes. On failure the
// suppression is released so a later remote snapshot can restore the
// object if the delete never took effect.
func (g *Gateway) Delete(id string) {
	g.mu.Lock()
	if p, ok := g.pending[id]; ok {
		p.timer.Stop()
		delete(g.pending, id)
	}
	g.inFlight++
	g.mu.Unlock()

	// Fallback: never hold the tombstone forever if the removed
	// confirmation is lost.
	time.AfterFunc(g.cfg.SuppressTimeout, func() {
		g.store.ReleaseSuppression(id)
	})

	go func() {
		ctx := context.Background()
		if err := g.collection.UpdateObject(ctx, id, &api.ObjectPatch{ClearLock: true}); err != nil {
			g.logger.Warn("lock clear before delete failed", "object_id", id, "error", err)
		}
		if err := g.collection.DeleteObject(ctx, id); err != nil {
			g.logger.Error("delete not persisted", "object_id", id, "error", err)
			g.store.ReleaseSuppression(id)
			g.fail()
			return
		}
		g.ack()
	}()
}

// launch counts one outbound write about to start.
func (g *Gateway) launch() {
	g.mu.Lock()
	g.inFlight++
	g.mu.Unlock()
}

// ack settles one completed write and clears the store's dirty flag
// once no write is in flight and no throttled patch is waiting. A
// single create's confirmation must not clear the flag while another
// create or delete is still on the wire.
func (g *Gateway) ack() {
	g.mu.Lock()
	g.inFlight--
	idle := g.inFlight == 0 && len(g.pending) == 0
	g.mu.Unlock()

	if idle {
		g.store.ClearDirty()
	}
}

// fail settles a write that did not land; the store stays dirty.
func (g *Gateway) fail() {
	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
}

// Close stops pending throttle timers. Coalesced patches that have
// not fired yet are flushed synchronously so a clean shutdown does
// not drop the trailing edge of an interaction.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	var flushIDs []string
	for id, p := range g.pending {
		if p.timer.Stop() {
			flushIDs = append(flushIDs, id)
		}
	}
	g.mu.Unlock()

	for _, id := range flushIDs {
		g.flush(id)
	}
}
