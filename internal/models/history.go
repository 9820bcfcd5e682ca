// Package models holds client-side domain types that never cross the
// wire: undo/redo bookkeeping and session identity. The shared object
// schema itself lives in pkg/api, since it doubles as the collection
// protocol record format.
package models

import (
	"time"

	"github.com/iudanet/canvasync/pkg/api"
)

// OpKind classifies a recorded mutation.
type OpKind string

// Recorded mutation kinds.
const (
	OpKindCreate OpKind = "create"
	OpKindUpdate OpKind = "update"
	OpKindDelete OpKind = "delete"
)

// Origin tags who produced a mutation.
type Origin string

// Mutation origins. Agent operations carry a shared GroupID so one
// natural-language command spanning several mutations can be undone as
// one logical step by the caller.
const (
	OriginHuman Origin = "human"
	OriginAgent Origin = "agent"
)

// UndoOperation is one inverse-operation entry on the undo/redo
// stacks. PreviousState is the pre-mutation snapshot used to undo
// update/delete (absent for create); NewState is the post-mutation
// snapshot used to redo create/update (absent for delete).
type UndoOperation struct {
	Timestamp     time.Time
	ID            string
	Kind          OpKind
	Origin        Origin
	GroupID       string
	AffectedIDs   []string
	PreviousState []api.CanvasObject
	NewState      []api.CanvasObject
}

// Clone returns a deep copy of the operation.
func (op *UndoOperation) Clone() *UndoOperation {
	c := *op
	c.AffectedIDs = append([]string(nil), op.AffectedIDs...)
	c.PreviousState = cloneObjects(op.PreviousState)
	c.NewState = cloneObjects(op.NewState)
	return &c
}

func cloneObjects(objects []api.CanvasObject) []api.CanvasObject {
	if objects == nil {
		return nil
	}
	out := make([]api.CanvasObject, 0, len(objects))
	for i := range objects {
		out = append(out, *objects[i].Clone())
	}
	return out
}

// Session identifies the local user for locking and presence.
type Session struct {
	UserID    string
	UserName  string
	UserColor string
}
