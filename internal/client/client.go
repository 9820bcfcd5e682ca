// Package client wires the synchronization core together for one
// board session: local state container, remote change channel,
// mutation gateway, advisory locks, undo/redo and presence. The UI
// shell and the AI command executor both drive it through the same
// mutation methods; the core only distinguishes them by the origin
// tag used for undo bookkeeping.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iudanet/canvasync/internal/canvas"
	"github.com/iudanet/canvasync/internal/client/gateway"
	"github.com/iudanet/canvasync/internal/client/history"
	"github.com/iudanet/canvasync/internal/client/lockmgr"
	"github.com/iudanet/canvasync/internal/client/presence"
	"github.com/iudanet/canvasync/internal/client/remote"
	"github.com/iudanet/canvasync/internal/client/storage"
	"github.com/iudanet/canvasync/internal/models"
	"github.com/iudanet/canvasync/pkg/api"
)

// ErrNotConnected is returned by mutation methods invoked before
// Connect has built the network-facing components.
var ErrNotConnected = errors.New("client not connected")

// ProjectAPI is the external project-store collaborator. The core
// treats a loaded project as an initial ReplaceAll and a save as a
// point-in-time snapshot; it does not participate in project diffing.
type ProjectAPI interface {
	LoadProject(ctx context.Context, token, projectID string) (*api.ProjectResponse, error)
	SaveProject(ctx context.Context, token, projectID string, req api.SaveProjectRequest) error
}

// Config assembles a client session.
type Config struct {
	ServerURL    string // http(s) base URL of the collection server
	BoardID      string
	Token        string // session token from the join endpoint
	Session      models.Session
	Gateway      gateway.Config
	Locks        lockmgr.Config
	Presence     presence.Config
	HistoryLimit int
	Snapshots    storage.SnapshotStorage // optional offline cache
	Projects     ProjectAPI              // optional project store
	Logger       *slog.Logger
}

// Client is one user's live session on a board.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	store      *canvas.Store
	collection remote.Collection
	conn       *remote.Conn
	applier    *remote.Applier
	gateway    *gateway.Gateway
	locks      *lockmgr.Manager
	history    *history.Engine
	presence   *presence.Tracker
}

// New builds the session graph. Connect must be called before any
// mutation reaches the network.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		store:  canvas.NewStore(),
	}
	c.applier = remote.NewApplier(c.store, logger)
	return c
}

// Connect dials the collection server and starts the subscription and
// presence loops. The server replays the current board state before
// live events, so the store converges shortly after.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return errors.New("already connected")
	}

	// The tracker is built from the connection in bind below; the
	// closures resolve it lazily, and no event fires before Start.
	handlers := remote.Handlers{
		OnObject:          c.applier.HandleObject,
		OnPresence:        func(record *api.PresenceRecord) { c.presence.HandlePresence(record) },
		OnPresenceRemoved: func(userID string) { c.presence.HandlePresenceRemoved(userID) },
		OnSnapshotEnd:     c.cacheSnapshot,
		OnDisconnect: func(err error) {
			if err != nil {
				c.logger.Warn("subscription lost", "board", c.cfg.BoardID, "error", err)
			}
		},
	}

	conn, err := remote.Dial(ctx, c.wsURL(), c.cfg.Token, handlers, c.logger)
	if err != nil {
		return fmt.Errorf("connect board %s: %w", c.cfg.BoardID, err)
	}
	c.conn = conn
	c.bind(conn)
	conn.Start()

	if err := c.presence.Start(ctx); err != nil {
		c.logger.Warn("presence start failed", "error", err)
	}
	return nil
}

// bind builds the collection-dependent components. Split out so tests
// can drive the client over an in-memory collection.
func (c *Client) bind(collection remote.Collection) {
	c.collection = collection
	c.gateway = gateway.New(collection, c.store, c.cfg.Gateway, c.logger)
	c.locks = lockmgr.New(collection, c.store, c.cfg.Session, c.cfg.Locks, c.logger)
	c.history = history.New(c.store, c.gateway, c.cfg.HistoryLimit, c.logger)
	c.presence = presence.NewTracker(collection, c.cfg.Session, c.cfg.Presence, c.logger)
}

// Close ends the session: presence record deleted (best effort),
// renewal loops cancelled, trailing updates flushed, socket closed.
func (c *Client) Close(ctx context.Context) error {
	if c.presence != nil {
		if err := c.presence.Stop(ctx); err != nil {
			c.logger.Warn("presence stop failed", "error", err)
		}
	}
	if c.locks != nil {
		c.locks.Close()
	}
	if c.gateway != nil {
		c.gateway.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Store exposes the local state container for rendering.
func (c *Client) Store() *canvas.Store { return c.store }

// Online returns the live peers. Nil before Connect.
func (c *Client) Online() []*api.PresenceRecord {
	if c.presence == nil {
		return nil
	}
	return c.presence.Online()
}

// connected reports whether bind has run. The components come up
// together, so checking one suffices.
func (c *Client) connected() bool { return c.gateway != nil }

// wsURL derives the websocket endpoint from the HTTP base URL.
func (c *Client) wsURL() string {
	base := c.cfg.ServerURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws?board=" + c.cfg.BoardID
}

// cacheSnapshot persists the delivered board state to the offline
// cache once the initial replay completes.
func (c *Client) cacheSnapshot() {
	if c.cfg.Snapshots == nil {
		return
	}
	objects := c.store.List()
	snapshot := make([]api.CanvasObject, 0, len(objects))
	for _, object := range objects {
		snapshot = append(snapshot, *object)
	}
	if err := c.cfg.Snapshots.SaveBoard(context.Background(), c.cfg.BoardID, snapshot); err != nil {
		c.logger.Warn("snapshot cache save failed", "board", c.cfg.BoardID, "error", err)
	}
}

// RestoreCachedBoard loads the last cached snapshot into the store,
// for rendering before (or without) a live connection. The next
// subscription replay overwrites it.
func (c *Client) RestoreCachedBoard(ctx context.Context) error {
	if c.cfg.Snapshots == nil {
		return storage.ErrSnapshotNotFound
	}
	objects, err := c.cfg.Snapshots.LoadBoard(ctx, c.cfg.BoardID)
	if err != nil {
		return err
	}
	c.store.ReplaceAll(objects)
	return nil
}
