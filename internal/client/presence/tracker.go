// Package presence maintains this session's heartbeat document and a
// client-side roster of everyone else's. Liveness is purely
// time-based: a record is online while its heartbeat is younger than
// the liveness window, and orphaned records (crashed client, closed
// tab) are reclaimed by a sweep rather than by any shutdown hook.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/canvasync/internal/client/remote"
	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

// Default presence timings.
const (
	DefaultHeartbeat      = 10 * time.Second
	DefaultCursorThrottle = 50 * time.Millisecond // 20 Hz
	DefaultLivenessWindow = 60 * time.Second
)

// Config tunes heartbeat and liveness timings.
type Config struct {
	Heartbeat      time.Duration
	CursorThrottle time.Duration
	LivenessWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.Heartbeat <= 0 {
		c.Heartbeat = DefaultHeartbeat
	}
	if c.CursorThrottle <= 0 {
		c.CursorThrottle = DefaultCursorThrottle
	}
	if c.LivenessWindow <= 0 {
		c.LivenessWindow = DefaultLivenessWindow
	}
	return c
}

// Tracker owns one session's presence lifecycle.
type Tracker struct {
	collection remote.Collection
	session    models.Session
	logger     *slog.Logger
	cfg        Config
	now        func() time.Time

	mu         sync.Mutex
	roster     map[string]*api.PresenceRecord
	cursor     api.CursorPosition
	lastCursor time.Time
	cancel     context.CancelFunc
}

// NewTracker creates a tracker for the session.
func NewTracker(collection remote.Collection, session models.Session, cfg Config, logger *slog.Logger) *Tracker {
	return &Tracker{
		collection: collection,
		session:    session,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		roster:     make(map[string]*api.PresenceRecord),
	}
}

// Start writes the initial presence record and begins the heartbeat
// loop. Stop must be called on session end.
func (t *Tracker) Start(ctx context.Context) error {
	if err := t.write(ctx); err != nil {
		return err
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := t.write(hbCtx); err != nil {
					t.logger.Warn("heartbeat write failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// Stop ends the heartbeat loop and deletes the session's own record
// (clean shutdown). If the delete never happens, the sweep reclaims
// the record once it goes stale.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()

	return t.collection.DeletePresence(ctx, t.session.UserID)
}

// MoveCursor records a cursor movement and pushes it remotely at a
// bounded rate; movements within the throttle window only update the
// local position, which the next heartbeat carries anyway.
func (t *Tracker) MoveCursor(ctx context.Context, x, y float64) {
	t.mu.Lock()
	t.cursor = api.CursorPosition{X: x, Y: y}
	now := t.now()
	due := now.Sub(t.lastCursor) >= t.cfg.CursorThrottle
	if due {
		t.lastCursor = now
	}
	t.mu.Unlock()

	if !due {
		return
	}
	if err := t.write(ctx); err != nil {
		t.logger.Warn("cursor write failed", "error", err)
	}
}

func (t *Tracker) write(ctx context.Context) error {
	t.mu.Lock()
	record := &api.PresenceRecord{
		UserID:        t.session.UserID,
		UserName:      t.session.UserName,
		UserColor:     t.session.UserColor,
		Cursor:        t.cursor,
		LastHeartbeat: t.now(),
	}
	t.mu.Unlock()

	return t.collection.PutPresence(ctx, record)
}

// HandlePresence is the subscription callback for presence puts. The
// session's own echo is ignored.
func (t *Tracker) HandlePresence(record *api.PresenceRecord) {
	if record.UserID == t.session.UserID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roster[record.UserID] = record.Clone()
}

// HandlePresenceRemoved is the subscription callback for presence
// deletions.
func (t *Tracker) HandlePresenceRemoved(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.roster, userID)
}

// Online returns the peers whose heartbeat falls within the liveness
// window, sorted by user id. Stale records are excluded but not
// deleted; that is the sweep's job.
func (t *Tracker) Online() []*api.PresenceRecord {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*api.PresenceRecord, 0, len(t.roster))
	for _, record := range t.roster {
		if !record.Stale(now, t.cfg.LivenessWindow) {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Sweep deletes every known record whose heartbeat age exceeds the
// liveness window, independent of whether the owning client survived.
// Returns the number of records reclaimed.
func (t *Tracker) Sweep(ctx context.Context) int {
	now := t.now()

	t.mu.Lock()
	var stale []string
	for id, record := range t.roster {
		if record.Stale(now, t.cfg.LivenessWindow) {
			stale = append(stale, id)
		}
	}
	t.mu.Unlock()

	swept := 0
	for _, id := range stale {
		if err := t.collection.DeletePresence(ctx, id); err != nil {
			t.logger.Warn("presence sweep delete failed", "user_id", id, "error", err)
			continue
		}
		swept++
	}
	return swept
}
