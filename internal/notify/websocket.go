package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// RelayMessage is the frame written to the websocket relay
type RelayMessage struct {
	Type         string `json:"type"`
	Notification
}

// WebSocketSink pushes notifications to a websocket relay as JSON frames.
// The connection is dialed on first use and redialed after a failed write.
type WebSocketSink struct {
	url    string
	dialer *websocket.Dialer

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
	log         zerolog.Logger
}

// NewWebSocketSink creates a sink for the relay at url (ws:// or wss://)
func NewWebSocketSink(url string) *WebSocketSink {
	return &WebSocketSink{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		log: zlog.With().Str("component", "notify.websocket").Logger(),
	}
}

// Name implements Sink
func (w *WebSocketSink) Name() string { return "websocket" }

// Send writes one RelayMessage frame
func (w *WebSocketSink) Send(ctx context.Context, n *Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.connect(ctx); err != nil {
		return err
	}

	w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := w.conn.WriteJSON(RelayMessage{Type: "match_events", Notification: *n}); err != nil {
		w.closeLocked()
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// connect dials the relay if not connected. Caller holds w.mu.
func (w *WebSocketSink) connect(ctx context.Context) error {
	if w.isConnected {
		return nil
	}

	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	w.conn = conn
	w.isConnected = true
	w.log.Info().Str("url", w.url).Msg("connected to relay")
	return nil
}

func (w *WebSocketSink) closeLocked() {
	if w.conn != nil {
		w.conn.Close()
	}
	w.conn = nil
	w.isConnected = false
}

// Close sends a close frame and drops the connection
func (w *WebSocketSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isConnected {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	w.closeLocked()
	return err
}
