// Package remote implements the client side of the remote object
// collection protocol: outbound writes (full-document create, merge
// semantics update, delete) and the inbound change subscription that
// feeds the local state container.
package remote

import (
	"context"
	"errors"

	"github.com/iudanet/canvasync/pkg/api"
)

// Collection is the keyed, subscribable backing store for canvas
// objects and presence records. Writes use merge-semantics patches for
// update and full-document writes for create; per-id event ordering is
// preserved by the backing channel, cross-id ordering is not.
type Collection interface {
	// CreateObject persists a full object document.
	CreateObject(ctx context.Context, object *api.CanvasObject) error

	// UpdateObject applies a partial-field patch; unspecified fields
	// are preserved remotely.
	UpdateObject(ctx context.Context, id string, patch *api.ObjectPatch) error

	// DeleteObject removes the document.
	DeleteObject(ctx context.Context, id string) error

	// PutPresence creates or refreshes the session's presence record.
	PutPresence(ctx context.Context, record *api.PresenceRecord) error

	// DeletePresence removes a presence record by user id. Used both
	// for clean shutdown (own record) and by the stale sweep (any).
	DeletePresence(ctx context.Context, userID string) error
}

// Connection errors.
var (
	// ErrClosed indicates the connection has been closed.
	ErrClosed = errors.New("connection closed")
)
