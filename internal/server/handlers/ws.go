package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/iudanet/canvasync/internal/server/hub"
	"github.com/iudanet/canvasync/internal/server/jwt"
)

// WSHandler upgrades authenticated sessions onto their board.
type WSHandler struct {
	hub    *hub.Hub
	tokens *jwt.Service
	logger *slog.Logger

	upgrader websocket.Upgrader
}

// NewWSHandler creates the websocket endpoint handler.
func NewWSHandler(h *hub.Hub, tokens *jwt.Service, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:    h,
		tokens: tokens,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Tokens already gate access; the origin check would only
			// block non-browser clients.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws?board=<id>. The session token comes from the
// Authorization header or, because browser websocket clients cannot
// set headers, from the "token" query parameter.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		sendError(w, h.logger, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		sendError(w, h.logger, "invalid token", http.StatusUnauthorized)
		return
	}

	board := r.URL.Query().Get("board")
	if board == "" || board != claims.Board {
		sendError(w, h.logger, "token not valid for this board", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.logger.Info("subscriber connected",
		slog.String("board", board),
		slog.String("user_id", claims.UserID),
		slog.String("name", claims.UserName))

	hub.ServeConn(h.hub.Board(board), conn, claims.UserID, h.logger)

	h.logger.Info("subscriber disconnected",
		slog.String("board", board),
		slog.String("user_id", claims.UserID))
}
