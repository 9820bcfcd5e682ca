package api

import "time"

// ChangeKind classifies an inbound collection event.
type ChangeKind string

// Change kinds delivered by the remote change channel.
const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Op names for client-to-server messages.
const (
	OpCreate         = "create"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpPresencePut    = "presence_put"
	OpPresenceDelete = "presence_delete"
)

// ClientMessage is one client-to-server frame. Op selects which
// payload fields are meaningful: create carries Object, update carries
// ID+Patch, delete carries ID, presence_put carries Presence,
// presence_delete carries ID (a user id).
type ClientMessage struct {
	Op       string          `json:"op"`
	ID       string          `json:"id,omitempty"`
	Object   *CanvasObject   `json:"object,omitempty"`
	Patch    *ObjectPatch    `json:"patch,omitempty"`
	Presence *PresenceRecord `json:"presence,omitempty"`
}

// Event names for server-to-client frames beyond object changes.
const (
	EventObject          = "object"
	EventPresence        = "presence"
	EventPresenceRemoved = "presence_removed"
	EventSnapshotEnd     = "snapshot_end"
)

// ServerMessage is one server-to-client frame. Event "object" carries
// Change+ID and, for added/modified, the full Object. Presence events
// carry Presence or the removed user id. On subscribe the server
// replays the current board as a sequence of added events terminated
// by snapshot_end.
type ServerMessage struct {
	Event    string          `json:"event"`
	Change   ChangeKind      `json:"change,omitempty"`
	ID       string          `json:"id,omitempty"`
	Object   *CanvasObject   `json:"object,omitempty"`
	Presence *PresenceRecord `json:"presence,omitempty"`
}

// JoinRequest asks for a session token on a board.
type JoinRequest struct {
	Board    string `json:"board"`
	Name     string `json:"name"`
	Passcode string `json:"passcode,omitempty"`
}

// JoinResponse carries the issued session identity.
type JoinResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	UserColor string `json:"user_color"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// ErrorResponse is the error body for HTTP endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ProjectMetadata describes a stored project snapshot.
type ProjectMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Objects   int       `json:"objects"`
}

// SaveProjectRequest stores a point-in-time snapshot of a board.
type SaveProjectRequest struct {
	Name      string         `json:"name"`
	Objects   []CanvasObject `json:"objects"`
	Thumbnail []byte         `json:"thumbnail,omitempty"`
}

// ProjectResponse returns a stored snapshot.
type ProjectResponse struct {
	Metadata ProjectMetadata `json:"metadata"`
	Objects  []CanvasObject  `json:"objects"`
}
