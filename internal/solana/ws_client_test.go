package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// drain keeps the server side open until the client disconnects.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func notification(subID int64, sig string, slot int64, err interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"subscription": subID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": slot},
				"value": map[string]interface{}{
					"signature": sig,
					"logs":      []string{"Program log: Test"},
					"err":       err,
				},
			},
		},
	}
}

// acceptSubscribe reads one logsSubscribe request and confirms it with subID.
// It runs on the server goroutine, so failures are reported with assert.
func acceptSubscribe(t *testing.T, conn *websocket.Conn, subID int64) []interface{} {
	_, msg, err := conn.ReadMessage()
	if !assert.NoError(t, err) {
		return nil
	}

	var req wsRequest
	if !assert.NoError(t, json.Unmarshal(msg, &req)) {
		return nil
	}
	assert.Equal(t, "logsSubscribe", req.Method)

	assert.NoError(t, conn.WriteJSON(map[string]interface{}{
		"jsonrpc": "2.0", "id": req.ID, "result": subID,
	}))
	return req.Params
}

func testConfig() *WSClientConfig {
	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 20 * time.Millisecond
	cfg.SubscribeTimeout = 2 * time.Second
	// Background goroutines may log after the test returns.
	cfg.Logger = zap.NewNop()
	return &cfg
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		params := acceptSubscribe(t, conn, 12345)
		if assert.NotEmpty(t, params) {
			filter, _ := params[0].(map[string]interface{})
			assert.Equal(t, []interface{}{"wallet1"}, filter["mentions"])
		}
		time.Sleep(50 * time.Millisecond)

		conn.WriteJSON(notification(12345, "failedsig", 99, map[string]interface{}{"InstructionError": 1}))
		conn.WriteJSON(notification(12345, "testsig", 100, nil))
		drain(conn)
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), testConfig())
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"wallet1"}})
	require.NoError(t, err)

	select {
	case notif := <-ch:
		assert.Equal(t, "failedsig", notif.Signature)
		assert.True(t, notif.Failed())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}

	select {
	case notif := <-ch:
		assert.Equal(t, "testsig", notif.Signature)
		assert.Equal(t, int64(100), notif.Slot)
		assert.Len(t, notif.Logs, 1)
		assert.False(t, notif.Failed())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_ResubscribesAfterDrop(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := connections.Add(1)
		if n == 1 {
			acceptSubscribe(t, conn, 1)
			// Drop the first connection right after confirming.
			return
		}
		acceptSubscribe(t, conn, 2)
		// Let the client register the new subscription id.
		time.Sleep(100 * time.Millisecond)
		conn.WriteJSON(notification(2, "after-reconnect", 5, nil))
		drain(conn)
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), testConfig())
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"wallet1"}})
	require.NoError(t, err)

	select {
	case notif := <-ch:
		assert.Equal(t, "after-reconnect", notif.Signature)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after reconnect")
	}
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestWSClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		acceptSubscribe(t, conn, 7)
		drain(conn)
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), testConfig())
	require.NoError(t, err)

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"wallet1"}})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, client.closed.Load())

	_, open := <-ch
	assert.False(t, open, "subscription channel closed")

	require.NoError(t, client.Close(), "double close is safe")

	_, err = client.SubscribeLogs(ctx, LogsFilter{})
	assert.ErrorIs(t, err, errClientClosed)
}

func TestWSClientConfig_WithDefaults(t *testing.T) {
	cfg := WSClientConfig{PingInterval: 5 * time.Second}.withDefaults()
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, DefaultCommitment, cfg.Commitment)
	assert.Equal(t, DefaultWSConfig().SubscribeTimeout, cfg.SubscribeTimeout)
	assert.Positive(t, cfg.BufferSize)
}
