package hub

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/canvasync/pkg/api"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	// sendBuffer bounds the per-subscriber queue; a consumer that
	// falls this far behind is disconnected rather than allowed to
	// stall the board.
	sendBuffer = 1024
)

// subscriber is one websocket session on a board. Outbound events
// flow through a buffered channel drained by a single write pump, so
// delivery order matches broadcast order. The replay snapshot is
// staged separately and written first; only live events compete for
// the buffer.
type subscriber struct {
	board    *Board
	conn     *websocket.Conn
	logger   *slog.Logger
	userID   string
	snapshot []*api.ServerMessage
	send     chan *api.ServerMessage
	done     chan struct{}
}

// ServeConn runs a subscriber until the connection drops. Subscribing
// stages the board snapshot, the write pump delivers it ahead of live
// events; inbound frames are applied to the board. Blocks until the
// read pump exits.
func ServeConn(board *Board, conn *websocket.Conn, userID string, logger *slog.Logger) {
	sub := &subscriber{
		board:  board,
		conn:   conn,
		logger: logger,
		userID: userID,
		send:   make(chan *api.ServerMessage, sendBuffer),
		done:   make(chan struct{}),
	}

	board.subscribe(sub)
	defer func() {
		board.unsubscribe(sub)
		// The session's presence record stays until clean delete or
		// sweep; a dropped connection is not a clean shutdown.
		close(sub.done)
		_ = conn.Close()
	}()

	go sub.writePump()
	sub.readPump()
}

// enqueue appends without blocking the board; an overflowing
// subscriber is cut loose and will reconnect with a fresh snapshot.
func (s *subscriber) enqueue(msg *api.ServerMessage) {
	select {
	case s.send <- msg:
	default:
		s.logger.Warn("subscriber queue overflow, dropping connection", "user_id", s.userID)
		_ = s.conn.Close()
	}
}

func (s *subscriber) readPump() {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg api.ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("subscriber read ended", "user_id", s.userID, "error", err)
			}
			return
		}
		s.apply(&msg)
	}
}

// apply routes one inbound frame into the board.
func (s *subscriber) apply(msg *api.ClientMessage) {
	switch msg.Op {
	case api.OpCreate:
		if msg.Object == nil {
			s.logger.Warn("create without object", "user_id", s.userID)
			return
		}
		s.board.applyCreate(msg.Object)
	case api.OpUpdate:
		if msg.ID == "" || msg.Patch == nil {
			s.logger.Warn("update without id or patch", "user_id", s.userID)
			return
		}
		s.board.applyUpdate(msg.ID, msg.Patch)
	case api.OpDelete:
		if msg.ID == "" {
			return
		}
		s.board.applyDelete(msg.ID)
	case api.OpPresencePut:
		if msg.Presence == nil {
			return
		}
		// A session may only write its own presence document.
		if msg.Presence.UserID != s.userID {
			s.logger.Warn("presence put for foreign user rejected",
				"user_id", s.userID, "target", msg.Presence.UserID)
			return
		}
		s.board.putPresence(msg.Presence)
	case api.OpPresenceDelete:
		// Deleting foreign records is allowed: the stale sweep runs
		// on whichever client notices the record is orphaned.
		if msg.ID == "" {
			return
		}
		s.board.deletePresence(msg.ID)
	default:
		s.logger.Warn("unknown op", "op", msg.Op, "user_id", s.userID)
	}
}

func (s *subscriber) writePump() {
	for _, msg := range s.snapshot {
		if err := s.write(msg); err != nil {
			return
		}
	}
	s.snapshot = nil

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) write(msg *api.ServerMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}
