package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/canvasync/internal/server/hub"
	"github.com/iudanet/canvasync/internal/server/jwt"
	"github.com/iudanet/canvasync/pkg/api"
)

func TestWSHandler_RejectsMissingToken(t *testing.T) {
	h := NewWSHandler(hub.New(0, testLogger()), jwt.NewService("s", time.Hour), testLogger())

	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/ws?board=b1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWSHandler_RejectsInvalidToken(t *testing.T) {
	h := NewWSHandler(hub.New(0, testLogger()), jwt.NewService("s", time.Hour), testLogger())

	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/ws?board=b1&token=garbage", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWSHandler_RejectsBoardMismatch(t *testing.T) {
	tokens := jwt.NewService("s", time.Hour)
	h := NewWSHandler(hub.New(0, testLogger()), tokens, testLogger())

	token, err := tokens.Generate("u1", "Alice", "#fff", "other-board")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/ws?board=b1&token="+token, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusForbidden, w.Code, "board parameter is required")
}

func TestWSHandler_AcceptsBearerHeader(t *testing.T) {
	tokens := jwt.NewService("s", time.Hour)
	h := NewWSHandler(hub.New(0, testLogger()), tokens, testLogger())

	token, err := tokens.Generate("u1", "Alice", "#fff", "other-board")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws?board=b1", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.Serve(w, r)

	// The header token was read and validated; only the board mismatch
	// stops the upgrade.
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWSHandler_SubscribeReceivesSnapshot(t *testing.T) {
	tokens := jwt.NewService("s", time.Hour)
	boards := hub.New(0, testLogger())
	h := NewWSHandler(boards, tokens, testLogger())

	server := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer server.Close()

	token, err := tokens.Generate("u1", "Alice", "#fff", "b1")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?board=b1&token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// An empty board replays straight to the terminator.
	var msg api.ServerMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, api.EventSnapshotEnd, msg.Event)

	// A frame sent through the socket lands on the board and echoes
	// back to its originator.
	require.NoError(t, conn.WriteJSON(&api.ClientMessage{
		Op: api.OpCreate,
		Object: &api.CanvasObject{
			ID: "r1", Type: api.ObjectTypeRectangle, Visible: true,
			Rectangle: &api.RectangleData{Width: 5, Height: 5},
		},
	}))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, api.EventObject, msg.Event)
	assert.Equal(t, api.ChangeAdded, msg.Change)
	assert.Equal(t, "r1", msg.ID)
}
