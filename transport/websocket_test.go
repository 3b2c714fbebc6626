// Package transport
package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEchoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			typ, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketRoundTrip(t *testing.T) {
	url := startEchoServer(t)

	tr, err := NewWebSocketDialer().Dial(url, nil)
	require.NoError(t, err)
	defer tr.Close(false)

	payload := []byte(`{"type":6}` + "\x1e")
	require.NoError(t, tr.Write(payload))

	data, err := tr.Read()
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestWebSocketNormalClose(t *testing.T) {
	url := startEchoServer(t)

	tr, err := NewWebSocketDialer().Dial(url, nil)
	require.NoError(t, err)
	assert.NoError(t, tr.Close(true))

	_, err = tr.Read()
	assert.Error(t, err)
}

func TestDialFailure(t *testing.T) {
	_, err := NewWebSocketDialer().Dial("ws://127.0.0.1:1/nope", nil)
	assert.Error(t, err)
}
