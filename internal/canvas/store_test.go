package canvas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/canvasync/pkg/api"
)

func rect(id string, x float64, z int64) *api.CanvasObject {
	now := time.Now().UTC()
	return &api.CanvasObject{
		ID:        id,
		OwnerID:   "user-1",
		Type:      api.ObjectTypeRectangle,
		Z:         z,
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
		Rectangle: &api.RectangleData{X: x, Y: 10, Width: 100, Height: 50, Fill: "#ffffff"},
	}
}

func TestStore_AddGetRemove(t *testing.T) {
	store := NewStore()

	store.Add(rect("r1", 0, 1))
	require.True(t, store.Contains("r1"))
	require.Equal(t, 1, store.Len())

	got := store.Get("r1")
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)
	assert.InDelta(t, 0.0, got.Rectangle.X, 0.001)

	// Mutating the returned clone must not affect the store.
	got.Rectangle.X = 999
	assert.InDelta(t, 0.0, store.Get("r1").Rectangle.X, 0.001)

	store.Remove("r1")
	assert.False(t, store.Contains("r1"))
	assert.Nil(t, store.Get("r1"))
}

func TestStore_UpdateUnknownIDIsNoOp(t *testing.T) {
	store := NewStore()

	store.Update("missing", &api.ObjectPatch{X: api.Float64(50)})

	assert.Equal(t, 0, store.Len())
	assert.False(t, store.Dirty(), "no-op update leaves the store clean")
}

func TestStore_UpdateAppliesPatch(t *testing.T) {
	store := NewStore()
	store.Add(rect("r1", 0, 1))

	store.Update("r1", &api.ObjectPatch{X: api.Float64(50), Fill: api.String("#ff0000")})

	got := store.Get("r1")
	assert.InDelta(t, 50.0, got.Rectangle.X, 0.001)
	assert.Equal(t, "#ff0000", got.Rectangle.Fill)
	assert.InDelta(t, 10.0, got.Rectangle.Y, 0.001, "unpatched fields untouched")
}

func TestStore_ListOrdering(t *testing.T) {
	store := NewStore()
	store.Add(rect("b", 0, 5))
	store.Add(rect("a", 0, 5))
	store.Add(rect("c", 0, 1))

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID, "lowest z first")
	assert.Equal(t, "a", list[1].ID, "z ties broken by id")
	assert.Equal(t, "b", list[2].ID)
}

func TestStore_MaxZ(t *testing.T) {
	store := NewStore()
	assert.Equal(t, int64(0), store.MaxZ())

	store.Add(rect("r1", 0, 3))
	store.Add(rect("r2", 0, 7))
	assert.Equal(t, int64(7), store.MaxZ())
}

func TestStore_Selection(t *testing.T) {
	store := NewStore()
	store.Add(rect("r1", 0, 1))
	store.Add(rect("r2", 0, 2))

	store.Select([]string{"r2", "r1", "ghost"})
	assert.Equal(t, []string{"r1", "r2"}, store.Selection(), "unknown ids dropped, result sorted")

	store.Remove("r2")
	assert.Equal(t, []string{"r1"}, store.Selection(), "removal drops selection")
}

func TestStore_DirtyLifecycle(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Dirty())

	store.Add(rect("r1", 0, 1))
	assert.True(t, store.Dirty())

	store.ClearDirty()
	assert.False(t, store.Dirty())

	store.Remove("r1")
	assert.True(t, store.Dirty())
}

func TestStore_ApplyRemoteOverwritesLocalState(t *testing.T) {
	store := NewStore()
	store.Add(rect("r1", 0, 1))
	store.Update("r1", &api.ObjectPatch{X: api.Float64(25)})

	remote := rect("r1", 100, 1)
	require.True(t, store.ApplyRemote(remote))

	assert.InDelta(t, 100.0, store.Get("r1").Rectangle.X, 0.001,
		"remote payload is authoritative over local optimistic state")
}

func TestStore_PendingDeleteSuppressesResurrection(t *testing.T) {
	store := NewStore()
	store.Add(rect("r1", 0, 1))

	// Local delete at t1: remove immediately, remember the intent.
	store.SuppressResurrection("r1")
	store.Remove("r1")

	// A stale modified event for the deleted object arrives before the
	// removed confirmation. It must not re-materialize the object.
	assert.False(t, store.ApplyRemote(rect("r1", 42, 1)))
	assert.False(t, store.Contains("r1"))

	// The removed confirmation clears the tombstone.
	store.ApplyRemoteRemove("r1")

	// Later events for the same id apply again (e.g. a new object that
	// reuses nothing, or a legitimate restore).
	assert.True(t, store.ApplyRemote(rect("r1", 7, 1)))
	assert.True(t, store.Contains("r1"))
}

func TestStore_ReleaseSuppression(t *testing.T) {
	store := NewStore()
	store.SuppressResurrection("r1")

	assert.False(t, store.ApplyRemote(rect("r1", 0, 1)))

	// Outbound delete failed; the object may legitimately come back.
	store.ReleaseSuppression("r1")
	assert.True(t, store.ApplyRemote(rect("r1", 0, 1)))
}

func TestStore_ReplaceAll(t *testing.T) {
	store := NewStore()
	store.Add(rect("old", 0, 1))
	store.Select([]string{"old"})
	store.SuppressResurrection("gone")

	store.ReplaceAll([]api.CanvasObject{*rect("n1", 1, 1), *rect("n2", 2, 2)})

	assert.Equal(t, 2, store.Len())
	assert.False(t, store.Contains("old"))
	assert.Empty(t, store.Selection())
	assert.False(t, store.Dirty(), "loaded snapshot mirrors persisted state")
	assert.True(t, store.ApplyRemote(rect("gone", 0, 1)), "tombstones reset on reload")
}
