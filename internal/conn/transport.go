package conn

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1 << 20 // 1MB
)

// Transport is a single persistent duplex connection to the server.
// Implementations own the raw read/write and low-level close signaling.
type Transport interface {
	// Read blocks until the next frame arrives or the connection fails.
	Read() ([]byte, error)
	// Write sends one frame.
	Write(data []byte) error
	// Ping sends a transport-level keepalive.
	Ping() error
	// Close tears the connection down; a blocked Read returns with an error.
	Close() error
}

// DialFunc opens a Transport. Injected so tests can substitute a fake.
type DialFunc func(ctx context.Context, url string, header http.Header) (Transport, error)

// DialWebsocket is the production DialFunc backed by gorilla/websocket.
func DialWebsocket(ctx context.Context, url string, header http.Header) (Transport, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c.SetReadLimit(maxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &wsTransport{conn: c}, nil
}

// wsTransport adapts a gorilla connection to the Transport interface.
// Writes are serialized; gorilla allows at most one concurrent writer.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (t *wsTransport) Read() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.mu.Unlock()
	return t.conn.Close()
}
