package history

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/internal/client/gateway"
	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

// nullCollection satisfies remote.Collection; the tests only inspect
// the local container.
type nullCollection struct{ mu sync.Mutex }

func (n *nullCollection) CreateObject(context.Context, *api.CanvasObject) error      { return nil }
func (n *nullCollection) UpdateObject(context.Context, string, *api.ObjectPatch) error { return nil }
func (n *nullCollection) DeleteObject(context.Context, string) error                 { return nil }
func (n *nullCollection) PutPresence(context.Context, *api.PresenceRecord) error     { return nil }
func (n *nullCollection) DeletePresence(context.Context, string) error               { return nil }

func newTestEngine(t *testing.T) (*Engine, *canvas.Store) {
	t.Helper()
	store := canvas.NewStore()
	logger := slog.New(slog.DiscardHandler)
	gw := gateway.New(&nullCollection{}, store, gateway.Config{}, logger)
	t.Cleanup(gw.Close)
	return New(store, gw, 0, logger), store
}

func rectAt(id string, x float64) *api.CanvasObject {
	return &api.CanvasObject{
		ID: id, Type: api.ObjectTypeRectangle,
		Visible:   true,
		Rectangle: &api.RectangleData{X: x, Y: 0, Width: 100, Height: 50},
	}
}

func TestEngine_UndoRedoUpdate(t *testing.T) {
	engine, store := newTestEngine(t)

	// Create r1 at x:0, then move it to x:50, recording both.
	before := rectAt("r1", 0)
	store.Add(before)
	engine.Record(models.OpKindCreate, []string{"r1"}, nil, []api.CanvasObject{*before}, models.OriginHuman, "")

	store.Update("r1", &api.ObjectPatch{X: api.Float64(50)})
	after := store.Get("r1")
	engine.Record(models.OpKindUpdate, []string{"r1"},
		[]api.CanvasObject{*before}, []api.CanvasObject{*after}, models.OriginHuman, "")

	// Undo restores x:0.
	require.True(t, engine.Undo())
	assert.InDelta(t, 0.0, store.Get("r1").Rectangle.X, 0.001)

	// Redo re-applies x:50.
	require.True(t, engine.Redo())
	assert.InDelta(t, 50.0, store.Get("r1").Rectangle.X, 0.001)
}

func TestEngine_UndoCreateRemovesObject(t *testing.T) {
	engine, store := newTestEngine(t)

	object := rectAt("r1", 10)
	store.Add(object)
	engine.Record(models.OpKindCreate, []string{"r1"}, nil, []api.CanvasObject{*object}, models.OriginHuman, "")

	require.True(t, engine.Undo())
	assert.False(t, store.Contains("r1"))

	// Undoing the create twice is impossible; the stack is consumed.
	assert.False(t, engine.Undo())

	// Redo recreates the object from its snapshot.
	require.True(t, engine.Redo())
	require.True(t, store.Contains("r1"))
	assert.InDelta(t, 10.0, store.Get("r1").Rectangle.X, 0.001)
}

func TestEngine_UndoDeleteRestoresSnapshot(t *testing.T) {
	engine, store := newTestEngine(t)

	object := rectAt("r1", 25)
	store.Add(object)

	snapshot := *store.Get("r1")
	store.SuppressResurrection("r1")
	store.Remove("r1")
	engine.Record(models.OpKindDelete, []string{"r1"}, []api.CanvasObject{snapshot}, nil, models.OriginHuman, "")
	require.False(t, store.Contains("r1"))

	require.True(t, engine.Undo())
	require.True(t, store.Contains("r1"))
	assert.InDelta(t, 25.0, store.Get("r1").Rectangle.X, 0.001)

	// The restore releases the pending-delete tombstone so the recreate
	// is not suppressed when it echoes back.
	assert.True(t, store.ApplyRemote(rectAt("r1", 25)))
}

func TestEngine_RecordClearsRedo(t *testing.T) {
	engine, store := newTestEngine(t)

	object := rectAt("r1", 0)
	store.Add(object)
	engine.Record(models.OpKindCreate, []string{"r1"}, nil, []api.CanvasObject{*object}, models.OriginHuman, "")

	require.True(t, engine.Undo())
	require.True(t, engine.CanRedo())

	// A fresh mutation forks history; the redo branch is gone.
	other := rectAt("r2", 5)
	store.Add(other)
	engine.Record(models.OpKindCreate, []string{"r2"}, nil, []api.CanvasObject{*other}, models.OriginHuman, "")

	assert.False(t, engine.CanRedo())
	assert.False(t, engine.Redo())
}

func TestEngine_EmptyStacksAreNoOps(t *testing.T) {
	engine, _ := newTestEngine(t)

	assert.False(t, engine.Undo())
	assert.False(t, engine.Redo())
	assert.False(t, engine.CanUndo())
	assert.False(t, engine.CanRedo())
}

func TestEngine_StackBound(t *testing.T) {
	store := canvas.NewStore()
	logger := slog.New(slog.DiscardHandler)
	gw := gateway.New(&nullCollection{}, store, gateway.Config{}, logger)
	t.Cleanup(gw.Close)
	engine := New(store, gw, 3, logger)

	for i := 0; i < 5; i++ {
		object := rectAt("r", float64(i))
		store.Add(object)
		engine.Record(models.OpKindUpdate, []string{"r"},
			[]api.CanvasObject{*rectAt("r", float64(i-1))},
			[]api.CanvasObject{*object}, models.OriginHuman, "")
	}

	undo, redo := engine.Depth()
	assert.Equal(t, 3, undo, "oldest entries dropped at the bound")
	assert.Equal(t, 0, redo)
}

func TestEngine_NextUndoGroup(t *testing.T) {
	engine, store := newTestEngine(t)

	_, ok := engine.NextUndoGroup()
	assert.False(t, ok)

	// An agent command records its operations under one group id so a
	// caller can unwind the whole command.
	group := "cmd-42"
	for _, id := range []string{"a", "b"} {
		object := rectAt(id, 0)
		store.Add(object)
		engine.Record(models.OpKindCreate, []string{id}, nil,
			[]api.CanvasObject{*object}, models.OriginAgent, group)
	}

	g, ok := engine.NextUndoGroup()
	require.True(t, ok)
	assert.Equal(t, group, g)

	require.True(t, engine.Undo())
	g, ok = engine.NextUndoGroup()
	require.True(t, ok)
	assert.Equal(t, group, g, "second half of the command still pending")

	require.True(t, engine.Undo())
	assert.False(t, store.Contains("a"))
	assert.False(t, store.Contains("b"))
}

func TestEngine_RecordSnapshotsAreIsolated(t *testing.T) {
	engine, store := newTestEngine(t)

	object := rectAt("r1", 1)
	store.Add(object)
	engine.Record(models.OpKindCreate, []string{"r1"}, nil, []api.CanvasObject{*object}, models.OriginHuman, "")

	// Mutating the recorded slice after the fact must not corrupt the
	// stack entry.
	object.Rectangle.X = 777

	require.True(t, engine.Undo())
	require.True(t, engine.Redo())
	assert.InDelta(t, 1.0, store.Get("r1").Rectangle.X, 0.001)
}
