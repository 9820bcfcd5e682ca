// Package canvas holds the in-process authoritative cache of canvas
// objects and selection state. Both local user gestures and inbound
// remote notifications touch the same map, so every accessor runs
// under one mutex; callers never see interior pointers, only clones.
package canvas

import (
	"sort"
	"sync"

	"github.com/iudanet/canvasync/pkg/api"
)

// Store is the single source of truth for rendering. It also tracks
// the "dirty" flag (local mutations not yet confirmed persisted) and
// the pending-local-delete tombstone set that suppresses resurrection
// of deleted objects from stale inbound events.
type Store struct {
	objects       map[string]*api.CanvasObject
	selection     map[string]struct{}
	pendingDelete map[string]struct{}
	mu            sync.RWMutex
	dirty         bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		objects:       make(map[string]*api.CanvasObject),
		selection:     make(map[string]struct{}),
		pendingDelete: make(map[string]struct{}),
	}
}

// Add inserts or replaces an object and marks the store dirty.
func (s *Store) Add(object *api.CanvasObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[object.ID] = object.Clone()
	s.dirty = true
}

// Update applies a partial-field patch to an existing object. An
// unknown id is a silent no-op: callers that need failure feedback
// must check membership first.
func (s *Store) Update(id string, patch *api.ObjectPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	object, ok := s.objects[id]
	if !ok {
		return
	}
	patch.Apply(object)
	s.dirty = true
}

// Remove deletes an object locally and drops it from the selection.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, id)
	delete(s.selection, id)
	s.dirty = true
}

// ReplaceAll swaps the entire object set, e.g. when loading a project
// snapshot. Selection and tombstones are reset; the store is clean
// afterwards since the new state mirrors the persisted snapshot.
func (s *Store) ReplaceAll(objects []api.CanvasObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[string]*api.CanvasObject, len(objects))
	for i := range objects {
		s.objects[objects[i].ID] = objects[i].Clone()
	}
	s.selection = make(map[string]struct{})
	s.pendingDelete = make(map[string]struct{})
	s.dirty = false
}

// Select replaces the selection set. Unknown ids are kept out.
func (s *Store) Select(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.objects[id]; ok {
			s.selection[id] = struct{}{}
		}
	}
}

// Selection returns the selected ids, sorted for determinism.
func (s *Store) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns a clone of the object, or nil if absent.
func (s *Store) Get(id string) *api.CanvasObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	object, ok := s.objects[id]
	if !ok {
		return nil
	}
	return object.Clone()
}

// Contains reports whether the object is materialized locally.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[id]
	return ok
}

// List returns clones of all objects in z-order (ties broken by id).
func (s *Store) List() []*api.CanvasObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*api.CanvasObject, 0, len(s.objects))
	for _, object := range s.objects {
		out = append(out, object.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

// MaxZ returns the highest z-order in the store, or 0 when empty.
// New objects are stacked at MaxZ()+1.
func (s *Store) MaxZ() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, object := range s.objects {
		if object.Z > max {
			max = object.Z
		}
	}
	return max
}

// Dirty reports whether a local mutation has not yet been confirmed
// as persisted.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dirty
}

// ClearDirty is called on successful persistence acknowledgement or
// full reload.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = false
}

// SuppressResurrection marks id as pending local delete: subsequent
// remote added/modified events for it are ignored until the removed
// confirmation arrives or the suppression is released.
func (s *Store) SuppressResurrection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingDelete[id] = struct{}{}
}

// ReleaseSuppression drops the pending-delete marker, used when the
// outbound delete failed and a later remote snapshot may legitimately
// restore the object.
func (s *Store) ReleaseSuppression(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pendingDelete, id)
}

// ApplyRemote applies an added/modified event. The remote payload is
// authoritative and fully overwrites any local optimistic state for
// that object, unless the id is pending local delete, in which case
// the event is dropped. Reports whether the store changed.
func (s *Store) ApplyRemote(object *api.CanvasObject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, suppressed := s.pendingDelete[object.ID]; suppressed {
		return false
	}
	s.objects[object.ID] = object.Clone()
	return true
}

// ApplyRemoteRemove applies a removed event: the object is deleted
// locally and its pending-delete suppression, if any, is released.
func (s *Store) ApplyRemoteRemove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, id)
	delete(s.selection, id)
	delete(s.pendingDelete, id)
}
