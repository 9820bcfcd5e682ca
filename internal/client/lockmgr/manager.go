// Package lockmgr manages short-lived advisory per-object locks. A
// lock is recorded as a field on the object itself and replicated to
// every client; the storage layer never enforces it, so acquisition
// failure is a normal negative result that cooperating UIs surface as
// "X is editing this" rather than a hard block.
package lockmgr

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/internal/client/remote"
	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

// Mode selects the lock TTL: a short one for selection highlights, a
// longer one for active edits (which also get a renewal loop).
type Mode string

// Lock modes.
const (
	ModeSelect Mode = "select"
	ModeEdit   Mode = "edit"
)

// ErrObjectNotFound is returned when the target object never
// materialized locally within the retry budget, e.g. its creation is
// still in flight.
var ErrObjectNotFound = errors.New("object not found")

// Default lock timings.
const (
	DefaultSelectTTL     = 10 * time.Second
	DefaultEditTTL       = 20 * time.Second
	DefaultRenewInterval = 7 * time.Second
	DefaultRetryBase     = 100 * time.Millisecond
	DefaultMaxRetries    = 3
)

// Config tunes lock TTLs and acquisition retries. RenewInterval must
// stay below EditTTL or an uncontested edit lock would expire between
// renewals.
type Config struct {
	SelectTTL     time.Duration
	EditTTL       time.Duration
	RenewInterval time.Duration
	RetryBase     time.Duration
	MaxRetries    uint64
}

func (c Config) withDefaults() Config {
	if c.SelectTTL <= 0 {
		c.SelectTTL = DefaultSelectTTL
	}
	if c.EditTTL <= 0 {
		c.EditTTL = DefaultEditTTL
	}
	if c.RenewInterval <= 0 {
		c.RenewInterval = DefaultRenewInterval
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Manager acquires, renews and releases advisory locks on behalf of
// one session. Renewal loops are per-object cancellable goroutines
// keyed by object id; Release and Close guarantee they stop on every
// exit path of a guarded interaction.
type Manager struct {
	collection remote.Collection
	store      *canvas.Store
	session    models.Session
	logger     *slog.Logger
	cfg        Config
	now        func() time.Time

	mu       sync.Mutex
	renewals map[string]*renewal
}

// renewal identifies one renewal loop instance so a stale loop never
// removes its successor's registration.
type renewal struct {
	cancel context.CancelFunc
}

// New creates a lock manager for the session.
func New(collection remote.Collection, store *canvas.Store, session models.Session, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		collection: collection,
		store:      store,
		session:    session,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		renewals:   make(map[string]*renewal),
	}
}

// Acquire attempts to take the advisory lock on objectID. It succeeds
// when no lock exists, the existing lock is expired, or the caller
// already holds it. The read-then-write is not transactional: a
// concurrent acquire can race and the later network arrival wins,
// which the advisory model accepts.
//
// Returns (false, nil) on contention. An object missing locally is
// retried briefly to absorb creation latency, then reported as
// ErrObjectNotFound.
func (m *Manager) Acquire(ctx context.Context, objectID string, mode Mode) (bool, error) {
	object, err := m.waitForObject(ctx, objectID)
	if err != nil {
		return false, err
	}

	now := m.now()
	if !object.FreeFor(m.session.UserID, now) {
		m.logger.Debug("lock contention",
			"object_id", objectID,
			"holder", object.Lock.UserName)
		return false, nil
	}

	if err := m.writeLock(ctx, objectID, m.ttl(mode)); err != nil {
		return false, err
	}

	if mode == ModeEdit {
		m.startRenewal(objectID)
	}
	return true, nil
}

// waitForObject reads the object from the local container, retrying
// with exponential backoff while its creation may still be in flight.
func (m *Manager) waitForObject(ctx context.Context, objectID string) (*api.CanvasObject, error) {
	var object *api.CanvasObject
	backoff := retry.WithMaxRetries(m.cfg.MaxRetries, retry.NewExponential(m.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if object = m.store.Get(objectID); object == nil {
			return retry.RetryableError(ErrObjectNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return object, nil
}

// writeLock stamps a fresh lock on the object, locally first for an
// immediate view, then through the collection.
func (m *Manager) writeLock(ctx context.Context, objectID string, ttl time.Duration) error {
	now := m.now()
	lock := &api.Lock{
		UserID:     m.session.UserID,
		UserName:   m.session.UserName,
		UserColor:  m.session.UserColor,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	patch := &api.ObjectPatch{Lock: lock}
	m.store.Update(objectID, patch)
	if err := m.collection.UpdateObject(ctx, objectID, patch); err != nil {
		return err
	}
	return nil
}

func (m *Manager) ttl(mode Mode) time.Duration {
	if mode == ModeEdit {
		return m.cfg.EditTTL
	}
	return m.cfg.SelectTTL
}

// startRenewal runs a per-object loop that re-stamps ExpiresAt every
// renewal interval while the caller still holds the lock. It
// self-terminates when the lock names someone else (lost to a racing
// acquirer), the object disappears, or the loop is cancelled.
func (m *Manager) startRenewal(objectID string) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &renewal{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.renewals[objectID]; ok {
		prev.cancel()
	}
	m.renewals[objectID] = r
	m.mu.Unlock()

	go func() {
		defer m.stopRenewal(objectID, r)

		ticker := time.NewTicker(m.cfg.RenewInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				object := m.store.Get(objectID)
				if object == nil || object.Lock == nil || object.Lock.UserID != m.session.UserID {
					m.logger.Debug("renewal stopped, lock no longer held", "object_id", objectID)
					return
				}
				if err := m.writeLock(ctx, objectID, m.cfg.EditTTL); err != nil {
					// Keep renewing; the lock survives one missed
					// write as long as the TTL outlasts the interval.
					m.logger.Warn("lock renewal write failed", "object_id", objectID, "error", err)
				}
			}
		}
	}()
}

// stopRenewal removes the renewal entry if it still belongs to this
// loop instance.
func (m *Manager) stopRenewal(objectID string, r *renewal) {
	r.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.renewals[objectID]; ok && current == r {
		delete(m.renewals, objectID)
	}
}

// Release stops the renewal loop and clears the lock field, but only
// if the caller is still the recorded holder: clobbering a lock
// legitimately acquired by someone else after expiry would break
// their edit.
func (m *Manager) Release(ctx context.Context, objectID string) error {
	m.mu.Lock()
	if r, ok := m.renewals[objectID]; ok {
		r.cancel()
		delete(m.renewals, objectID)
	}
	m.mu.Unlock()

	object := m.store.Get(objectID)
	if object == nil || object.Lock == nil || object.Lock.UserID != m.session.UserID {
		return nil
	}

	patch := &api.ObjectPatch{ClearLock: true}
	m.store.Update(objectID, patch)
	if err := m.collection.UpdateObject(ctx, objectID, patch); err != nil {
		return err
	}
	return nil
}

// Renewing reports whether an edit renewal loop is active for the
// object.
func (m *Manager) Renewing(objectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.renewals[objectID]
	return ok
}

// Close cancels every renewal loop. Held locks are left to expire by
// TTL; the sweep-free design of locks means no cleanup write is
// required on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.renewals {
		r.cancel()
		delete(m.renewals, id)
	}
}
