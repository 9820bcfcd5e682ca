package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/canvasync/internal/server/jwt"
	"github.com/iudanet/canvasync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func postJoin(t *testing.T, h *JoinHandler, req api.JoinRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/join", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Join(w, r)
	return w
}

func TestJoinHandler_IssuesToken(t *testing.T) {
	tokens := jwt.NewService("test-secret", time.Hour)
	h := NewJoinHandler(tokens, nil, testLogger())

	w := postJoin(t, h, api.JoinRequest{Board: "design-review", Name: "Alice"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.JoinResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.UserID)
	assert.NotEmpty(t, resp.UserColor)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "Alice", claims.UserName)
	assert.Equal(t, "design-review", claims.Board)
}

func TestJoinHandler_Validation(t *testing.T) {
	h := NewJoinHandler(jwt.NewService("s", time.Hour), nil, testLogger())

	tests := []struct {
		name string
		req  api.JoinRequest
	}{
		{name: "empty board", req: api.JoinRequest{Name: "Alice"}},
		{name: "bad board chars", req: api.JoinRequest{Board: "a b", Name: "Alice"}},
		{name: "empty name", req: api.JoinRequest{Board: "b1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJoin(t, h, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestJoinHandler_InvalidBody(t *testing.T) {
	h := NewJoinHandler(jwt.NewService("s", time.Hour), nil, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/join", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.Join(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinHandler_Passcode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	h := NewJoinHandler(jwt.NewService("s", time.Hour), hash, testLogger())

	w := postJoin(t, h, api.JoinRequest{Board: "b1", Name: "Alice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing passcode rejected")

	w = postJoin(t, h, api.JoinRequest{Board: "b1", Name: "Alice", Passcode: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJoin(t, h, api.JoinRequest{Board: "b1", Name: "Alice", Passcode: "open-sesame"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestColorFor_Deterministic(t *testing.T) {
	c1 := colorFor("user-abc")
	c2 := colorFor("user-abc")
	assert.Equal(t, c1, c2)
	assert.Contains(t, cursorPalette, c1)
}
