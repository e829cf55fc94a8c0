package ws

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"nhooyr.io/websocket"
)

const (
	pingInterval = 30 * time.Second

	// maxCloseReason is the largest close reason a control frame can carry.
	maxCloseReason = 123
)

// Transport is the frame channel a session speaks over.
// Write and Close may be called concurrently with Read.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// connTransport adapts a websocket.Conn to Transport using text frames.
type connTransport struct {
	conn *websocket.Conn
}

func newConnTransport(conn *websocket.Conn, readLimit int64) *connTransport {
	conn.SetReadLimit(readLimit)
	return &connTransport{conn: conn}
}

func (t *connTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	return data, err
}

func (t *connTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *connTransport) Close(code websocket.StatusCode, reason string) error {
	return t.conn.Close(code, truncateReason(reason))
}

// keepAlive pings the peer until ctx ends. A failed ping closes the
// connection, which unblocks the session's pending Read.
func keepAlive(ctx context.Context, conn *websocket.Conn, interval, timeout time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, timeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Debug("ws ping failed", "error", err)
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	cut := maxCloseReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
