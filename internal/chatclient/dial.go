package chatclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn a RoomConnection uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a streaming connection to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// WebsocketDialer dials with gorilla/websocket. A zero handshakeTimeout means
// the handshake is bounded only by ctx.
func WebsocketDialer(handshakeTimeout time.Duration) DialFunc {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	return func(ctx context.Context, u string) (Conn, error) {
		c, resp, err := d.DialContext(ctx, u, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// RoomURL appends roomID to the configured base address.
func RoomURL(base, roomID string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(roomID)
}
