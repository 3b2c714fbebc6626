// Package transport
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeWriteTimeout       = 2 * time.Second
)

// NewWebSocket wraps an established websocket connection.
func NewWebSocket(c *websocket.Conn) Transport {
	return &wsConn{conn: c}
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (ws *wsConn) Read() ([]byte, error) {
	typ, data, err := ws.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if typ == websocket.CloseMessage {
		return nil, errors.New("closed by peer")
	}
	return data, nil
}

func (ws *wsConn) Write(data []byte) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func (ws *wsConn) Close(normal bool) error {
	if normal {
		ws.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		ws.writeMu.Unlock()
	}
	return ws.conn.Close()
}

// NewWebSocketDialer returns the default Dialer used to reach the hub.
func NewWebSocketDialer() Dialer {
	return &wsDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
	}
}

type wsDialer struct {
	dialer *websocket.Dialer
}

func (d *wsDialer) Dial(url string, header http.Header) (Transport, error) {
	c, resp, err := d.dialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return NewWebSocket(c), nil
}
