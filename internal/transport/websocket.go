package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	handshakeTimeout = 10 * time.Second
	writeDeadline    = 5 * time.Second
)

// Websocket is the production Transport: a gorilla/websocket client that
// dials a relay URL and exchanges text frames.
type Websocket struct {
	url   string
	clock clockwork.Clock
}

// NewWebsocket creates a websocket transport for url (ws:// or wss://).
func NewWebsocket(url string, clock clockwork.Clock) *Websocket {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Websocket{url: url, clock: clock}
}

func (t *Websocket) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", t.url, err)
	}
	return &wsConn{conn: conn, clock: t.clock}, nil
}

type wsConn struct {
	conn      *websocket.Conn
	clock     clockwork.Clock
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
		_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
