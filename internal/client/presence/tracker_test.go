package presence

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

type fakeCollection struct {
	mu      sync.Mutex
	puts    []*api.PresenceRecord
	deletes []string
}

func (f *fakeCollection) CreateObject(context.Context, *api.CanvasObject) error        { return nil }
func (f *fakeCollection) UpdateObject(context.Context, string, *api.ObjectPatch) error { return nil }
func (f *fakeCollection) DeleteObject(context.Context, string) error                   { return nil }

func (f *fakeCollection) PutPresence(_ context.Context, record *api.PresenceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, record)
	return nil
}

func (f *fakeCollection) DeletePresence(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, userID)
	return nil
}

func (f *fakeCollection) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *fakeCollection) lastPut() *api.PresenceRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts[len(f.puts)-1]
}

func (f *fakeCollection) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

var session = models.Session{UserID: "me", UserName: "Me", UserColor: "#4363d8"}

func newTestTracker(cfg Config) (*Tracker, *fakeCollection) {
	coll := &fakeCollection{}
	return NewTracker(coll, session, cfg, slog.New(slog.DiscardHandler)), coll
}

func peer(userID string, heartbeat time.Time) *api.PresenceRecord {
	return &api.PresenceRecord{
		UserID:        userID,
		UserName:      "Peer " + userID,
		UserColor:     "#f58231",
		LastHeartbeat: heartbeat,
	}
}

func TestTracker_StartWritesAndHeartbeats(t *testing.T) {
	tracker, coll := newTestTracker(Config{Heartbeat: 20 * time.Millisecond})

	require.NoError(t, tracker.Start(context.Background()))
	defer func() { _ = tracker.Stop(context.Background()) }()

	require.Equal(t, 1, coll.putCount(), "initial record written synchronously")
	assert.Equal(t, "me", coll.lastPut().UserID)

	require.Eventually(t, func() bool { return coll.putCount() >= 3 },
		time.Second, 5*time.Millisecond, "heartbeat loop keeps writing")
}

func TestTracker_StopDeletesOwnRecord(t *testing.T) {
	tracker, coll := newTestTracker(Config{Heartbeat: time.Hour})

	require.NoError(t, tracker.Start(context.Background()))
	require.NoError(t, tracker.Stop(context.Background()))

	assert.Equal(t, []string{"me"}, coll.deleted())
}

func TestTracker_MoveCursorThrottled(t *testing.T) {
	tracker, coll := newTestTracker(Config{CursorThrottle: 50 * time.Millisecond})

	base := time.Now()
	now := base
	tracker.now = func() time.Time { return now }

	// First movement goes out immediately (leading edge).
	tracker.MoveCursor(context.Background(), 1, 1)
	require.Equal(t, 1, coll.putCount())

	// Movements inside the window only update local state.
	now = base.Add(10 * time.Millisecond)
	tracker.MoveCursor(context.Background(), 2, 2)
	now = base.Add(20 * time.Millisecond)
	tracker.MoveCursor(context.Background(), 3, 3)
	require.Equal(t, 1, coll.putCount())

	// Past the window the latest position is written.
	now = base.Add(60 * time.Millisecond)
	tracker.MoveCursor(context.Background(), 4, 4)
	require.Equal(t, 2, coll.putCount())
	assert.InDelta(t, 4.0, coll.lastPut().Cursor.X, 0.001)
}

func TestTracker_RosterIgnoresOwnEcho(t *testing.T) {
	tracker, _ := newTestTracker(Config{})

	tracker.HandlePresence(peer("me", time.Now()))
	tracker.HandlePresence(peer("other", time.Now()))

	online := tracker.Online()
	require.Len(t, online, 1)
	assert.Equal(t, "other", online[0].UserID)
}

func TestTracker_OnlineExcludesStale(t *testing.T) {
	tracker, _ := newTestTracker(Config{LivenessWindow: 60 * time.Second})

	base := time.Now()
	tracker.now = func() time.Time { return base }

	tracker.HandlePresence(peer("fresh", base.Add(-10*time.Second)))
	tracker.HandlePresence(peer("edge", base.Add(-59*time.Second)))
	// 61 seconds without a heartbeat: offline even though the record
	// still exists.
	tracker.HandlePresence(peer("gone", base.Add(-61*time.Second)))

	online := tracker.Online()
	require.Len(t, online, 2)
	assert.Equal(t, "edge", online[0].UserID)
	assert.Equal(t, "fresh", online[1].UserID)
}

func TestTracker_HandlePresenceRemoved(t *testing.T) {
	tracker, _ := newTestTracker(Config{})

	tracker.HandlePresence(peer("p1", time.Now()))
	require.Len(t, tracker.Online(), 1)

	tracker.HandlePresenceRemoved("p1")
	assert.Empty(t, tracker.Online())
}

func TestTracker_SweepReclaimsStaleRecords(t *testing.T) {
	tracker, coll := newTestTracker(Config{LivenessWindow: 60 * time.Second})

	base := time.Now()
	tracker.now = func() time.Time { return base }

	tracker.HandlePresence(peer("alive", base.Add(-5*time.Second)))
	tracker.HandlePresence(peer("dead1", base.Add(-90*time.Second)))
	tracker.HandlePresence(peer("dead2", base.Add(-2*time.Hour)))

	swept := tracker.Sweep(context.Background())
	assert.Equal(t, 2, swept)
	assert.ElementsMatch(t, []string{"dead1", "dead2"}, coll.deleted())
}

func TestTracker_OnlineReturnsClones(t *testing.T) {
	tracker, _ := newTestTracker(Config{})

	tracker.HandlePresence(peer("p1", time.Now()))
	online := tracker.Online()
	require.Len(t, online, 1)

	online[0].UserName = "mutated"
	assert.Equal(t, "Peer p1", tracker.Online()[0].UserName)
}
