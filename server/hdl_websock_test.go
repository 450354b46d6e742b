package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestBroker(t *testing.T, b *Broker) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.serveWebSocket))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws, srv
}

func readEnvelope(t *testing.T, ws *websocket.Conn) *ServerResponse {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var resp ServerResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return &resp
}

func TestServeWebSocketWelcomeAndRoundTrip(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	ws, srv := dialTestBroker(t, b)
	defer srv.Close()
	defer ws.Close()

	resp := readEnvelope(t, ws)
	assert.Equal(t, "welcome", resp.Type)
	assert.True(t, resp.Success)
	assert.Equal(t, "Connected to Emshop WebSocket Server", resp.Message)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	resp = readEnvelope(t, ws)
	assert.Equal(t, "pong", resp.Type)
	assert.True(t, resp.Success)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_cart"}`)))
	resp = readEnvelope(t, ws)
	assert.False(t, resp.Success)
	assert.Equal(t, "Authentication required", resp.Message)
}

func TestServeWebSocketRejectsNonGet(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(b.serveWebSocket))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
