package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultLivenessWindow matches the client-side presence window.
const DefaultLivenessWindow = 60 * time.Second

// Hub owns every board hosted by this server.
type Hub struct {
	logger         *slog.Logger
	livenessWindow time.Duration

	mu     sync.Mutex
	boards map[string]*Board
}

// New creates an empty hub.
func New(livenessWindow time.Duration, logger *slog.Logger) *Hub {
	if livenessWindow <= 0 {
		livenessWindow = DefaultLivenessWindow
	}
	return &Hub{
		logger:         logger,
		livenessWindow: livenessWindow,
		boards:         make(map[string]*Board),
	}
}

// Board returns the board, creating it on first use.
func (h *Hub) Board(id string) *Board {
	h.mu.Lock()
	defer h.mu.Unlock()

	board, ok := h.boards[id]
	if !ok {
		board = newBoard(id, h.logger)
		h.boards[id] = board
	}
	return board
}

// RunSweeper reclaims stale presence records on every board at the
// given interval until ctx is cancelled. This is the server-side
// safety net for clients that crashed without deleting their record.
func (h *Hub) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			h.mu.Lock()
			boards := make([]*Board, 0, len(h.boards))
			for _, board := range h.boards {
				boards = append(boards, board)
			}
			h.mu.Unlock()

			for _, board := range boards {
				if swept := board.sweepPresence(now, h.livenessWindow); swept > 0 {
					h.logger.Info("presence sweep reclaimed records",
						"board", board.id, "count", swept)
				}
			}
		}
	}
}
