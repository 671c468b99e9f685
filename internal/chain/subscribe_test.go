package chain_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/chain"
)

func wsURL(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscribeDeliversNotifications(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req map[string]interface{}
		require.NoError(t, conn.ReadJSON(&req))
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "result": 1, "id": 1}))

		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 123},
					"value":   map[string]interface{}{"signature": "sig-abc"},
				},
			},
		}))

		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	sub, err := chain.Subscribe(context.Background(), wsURL(t, srv), "ProgramID111")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case notif := <-sub.Notifications():
		require.Equal(t, "sig-abc", notif.Signature)
		require.EqualValues(t, 123, notif.Slot)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestSubscribeUnsupportedMethod(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req map[string]interface{}
		require.NoError(t, conn.ReadJSON(&req))
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32601, "message": "Method not found"},
		}))
	}))
	defer srv.Close()

	_, err := chain.Subscribe(context.Background(), wsURL(t, srv), "ProgramID111")
	require.Error(t, err)

	var unsupported *chain.ErrSubscriptionUnsupported
	require.ErrorAs(t, err, &unsupported)
}
