package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/canvasync/pkg/api"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handlers receives inbound subscription events. Callbacks run on the
// single read-pump goroutine, so per-id event order is preserved end
// to end. Nil callbacks are skipped.
type Handlers struct {
	// OnObject delivers added/modified/removed events. Object is nil
	// for removed.
	OnObject func(kind api.ChangeKind, id string, object *api.CanvasObject)

	// OnPresence delivers presence record puts.
	OnPresence func(record *api.PresenceRecord)

	// OnPresenceRemoved delivers presence deletions.
	OnPresenceRemoved func(userID string)

	// OnSnapshotEnd fires once the initial board replay is complete.
	OnSnapshotEnd func()

	// OnDisconnect fires when the read pump exits. err is nil on a
	// clean close.
	OnDisconnect func(err error)
}

// Conn is a websocket-backed Collection. Outbound writes are
// serialized by a mutex; inbound events are dispatched by a dedicated
// read pump started in Dial.
type Conn struct {
	ws       *websocket.Conn
	logger   *slog.Logger
	handlers Handlers
	done     chan struct{}

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// Dial connects to the collection server and authenticates with the
// session token. No events are delivered until Start is called, so
// the caller can finish wiring consumers first. The server replays
// the current board state as added events before live changes.
func Dial(ctx context.Context, url, token string, handlers Handlers, logger *slog.Logger) (*Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		ws:       ws,
		logger:   logger,
		handlers: handlers,
		done:     make(chan struct{}),
	}
	return c, nil
}

// Start launches the read and ping loops. Call exactly once.
func (c *Conn) Start() {
	go c.readPump()
	go c.pingLoop()
}

// Close tears down the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	c.writeMu.Lock()
	deadline := time.Now().Add(writeWait)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()

	return c.ws.Close()
}

// CreateObject implements Collection.
func (c *Conn) CreateObject(ctx context.Context, object *api.CanvasObject) error {
	return c.send(ctx, &api.ClientMessage{Op: api.OpCreate, Object: object})
}

// UpdateObject implements Collection.
func (c *Conn) UpdateObject(ctx context.Context, id string, patch *api.ObjectPatch) error {
	return c.send(ctx, &api.ClientMessage{Op: api.OpUpdate, ID: id, Patch: patch})
}

// DeleteObject implements Collection.
func (c *Conn) DeleteObject(ctx context.Context, id string) error {
	return c.send(ctx, &api.ClientMessage{Op: api.OpDelete, ID: id})
}

// PutPresence implements Collection.
func (c *Conn) PutPresence(ctx context.Context, record *api.PresenceRecord) error {
	return c.send(ctx, &api.ClientMessage{Op: api.OpPresencePut, Presence: record})
}

// DeletePresence implements Collection.
func (c *Conn) DeletePresence(ctx context.Context, userID string) error {
	return c.send(ctx, &api.ClientMessage{Op: api.OpPresenceDelete, ID: userID})
}

func (c *Conn) send(ctx context.Context, msg *api.ClientMessage) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Op, err)
	}
	return nil
}

// readPump delivers server frames to the handlers until the
// connection drops.
func (c *Conn) readPump() {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	var pumpErr error
	for {
		var msg api.ServerMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("subscription closed")
			} else {
				select {
				case <-c.done:
					// Local Close raced the read; not an error.
				default:
					c.logger.Error("subscription read failed", "error", err)
					pumpErr = err
				}
			}
			break
		}
		c.dispatch(&msg)
	}

	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect(pumpErr)
	}
}

func (c *Conn) dispatch(msg *api.ServerMessage) {
	switch msg.Event {
	case api.EventObject:
		if c.handlers.OnObject != nil {
			c.handlers.OnObject(msg.Change, msg.ID, msg.Object)
		}
	case api.EventPresence:
		if c.handlers.OnPresence != nil && msg.Presence != nil {
			c.handlers.OnPresence(msg.Presence)
		}
	case api.EventPresenceRemoved:
		if c.handlers.OnPresenceRemoved != nil {
			c.handlers.OnPresenceRemoved(msg.ID)
		}
	case api.EventSnapshotEnd:
		if c.handlers.OnSnapshotEnd != nil {
			c.handlers.OnSnapshotEnd()
		}
	default:
		c.logger.Warn("unknown server event", "event", msg.Event)
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
