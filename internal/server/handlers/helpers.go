// Package handlers implements the collection server's HTTP surface:
// board join, the websocket subscription endpoint and the project
// snapshot store.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/canvasync/pkg/api"
)

// contextKey is a private type for context values set by middleware.
type contextKey string

// Context keys populated by the auth middleware.
const (
	UserIDKey   contextKey = "user_id"
	UserNameKey contextKey = "user_name"
	BoardKey    contextKey = "board"
)

// sendJSON writes a JSON response body.
func sendJSON(w http.ResponseWriter, logger *slog.Logger, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// sendError writes a JSON error body.
func sendError(w http.ResponseWriter, logger *slog.Logger, message string, status int) {
	sendJSON(w, logger, api.ErrorResponse{Error: message}, status)
}

// bearerToken extracts a token from "Authorization: Bearer <token>".
// Returns "" when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
