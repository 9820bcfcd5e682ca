package hub

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/canvasync/pkg/api"
)

// TestServeConn_ReplaysBoardLargerThanSendBuffer joins a board holding
// more objects than the live-event queue can buffer. The replay must
// arrive in full: snapshot delivery is staged outside the queue, so its
// size never forces a disconnect.
func TestServeConn_ReplaysBoardLargerThanSendBuffer(t *testing.T) {
	board := testBoard()
	total := sendBuffer + 500
	for i := 0; i < total; i++ {
		board.applyCreate(circle(fmt.Sprintf("c%04d", i), 5))
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ServeConn(board, conn, "u1", slog.New(slog.DiscardHandler))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	objects := 0
	for {
		var msg api.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg), "connection must survive the full replay")
		if msg.Event == api.EventSnapshotEnd {
			break
		}
		require.Equal(t, api.EventObject, msg.Event)
		require.Equal(t, api.ChangeAdded, msg.Change)
		objects++
	}
	assert.Equal(t, total, objects)
}
