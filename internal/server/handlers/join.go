package handlers

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/canvasync/internal/server/jwt"
	"github.com/iudanet/canvasync/internal/validation"
	"github.com/iudanet/canvasync/pkg/api"
)

// cursorPalette provides deterministic per-user colors so every
// client renders a given peer the same way.
var cursorPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#800000", "#aaffc3",
}

// JoinHandler issues board session tokens.
type JoinHandler struct {
	tokens *jwt.Service
	logger *slog.Logger

	// passcodeHash is the bcrypt hash of the shared board passcode;
	// empty means open access.
	passcodeHash []byte
}

// NewJoinHandler creates the join endpoint handler.
func NewJoinHandler(tokens *jwt.Service, passcodeHash []byte, logger *slog.Logger) *JoinHandler {
	return &JoinHandler{tokens: tokens, passcodeHash: passcodeHash, logger: logger}
}

// Join handles POST /api/join: validates the board id, display name
// and optional passcode, then issues a session token with a fresh
// user id and a deterministic cursor color.
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateBoardID(req.Board); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDisplayName(req.Name); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if len(h.passcodeHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(h.passcodeHash, []byte(req.Passcode)); err != nil {
			h.logger.WarnContext(ctx, "join rejected: wrong passcode",
				slog.String("board", req.Board), slog.String("name", req.Name))
			sendError(w, h.logger, "invalid passcode", http.StatusUnauthorized)
			return
		}
	}

	userID := uuid.New().String()
	color := colorFor(userID)

	token, err := h.tokens.Generate(userID, req.Name, color, req.Board)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate session token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "session joined",
		slog.String("board", req.Board),
		slog.String("user_id", userID),
		slog.String("name", req.Name))

	sendJSON(w, h.logger, api.JoinResponse{
		Token:     token,
		UserID:    userID,
		UserColor: color,
		ExpiresIn: int64(h.tokens.TTL().Seconds()),
	}, http.StatusOK)
}

func colorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return cursorPalette[h.Sum32()%uint32(len(cursorPalette))]
}
