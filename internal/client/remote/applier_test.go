package remote

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/pkg/api"
)

func newTestApplier() (*Applier, *canvas.Store) {
	store := canvas.NewStore()
	return NewApplier(store, slog.New(slog.DiscardHandler)), store
}

func remoteRect(id string, x float64) *api.CanvasObject {
	return &api.CanvasObject{
		ID: id, Type: api.ObjectTypeRectangle, Visible: true,
		Rectangle: &api.RectangleData{X: x, Width: 10, Height: 10},
	}
}

func TestApplier_AddedMaterializesObject(t *testing.T) {
	applier, store := newTestApplier()

	applier.HandleObject(api.ChangeAdded, "r1", remoteRect("r1", 3))

	require.True(t, store.Contains("r1"))
	assert.InDelta(t, 3.0, store.Get("r1").Rectangle.X, 0.001)
}

func TestApplier_ModifiedOverwritesWholeObject(t *testing.T) {
	applier, store := newTestApplier()
	store.Add(remoteRect("r1", 1))

	applier.HandleObject(api.ChangeModified, "r1", remoteRect("r1", 42))

	assert.InDelta(t, 42.0, store.Get("r1").Rectangle.X, 0.001)
}

func TestApplier_RemovedDeletes(t *testing.T) {
	applier, store := newTestApplier()
	store.Add(remoteRect("r1", 1))

	applier.HandleObject(api.ChangeRemoved, "r1", nil)

	assert.False(t, store.Contains("r1"))
}

func TestApplier_DropsMalformedPayload(t *testing.T) {
	applier, store := newTestApplier()

	applier.HandleObject(api.ChangeAdded, "bad", &api.CanvasObject{ID: "bad", Type: api.ObjectTypeRectangle})
	applier.HandleObject(api.ChangeAdded, "nil", nil)
	applier.HandleObject("garbage", "x", remoteRect("x", 1))

	assert.Equal(t, 0, store.Len())
}

func TestApplier_RespectsPendingDelete(t *testing.T) {
	applier, store := newTestApplier()
	store.Add(remoteRect("r1", 1))
	store.SuppressResurrection("r1")
	store.Remove("r1")

	applier.HandleObject(api.ChangeModified, "r1", remoteRect("r1", 42))
	assert.False(t, store.Contains("r1"), "stale event suppressed by the tombstone")

	applier.HandleObject(api.ChangeRemoved, "r1", nil)
	applier.HandleObject(api.ChangeAdded, "r1", remoteRect("r1", 7))
	assert.True(t, store.Contains("r1"), "tombstone cleared by the removed confirmation")
}
