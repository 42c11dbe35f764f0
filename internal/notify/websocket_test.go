package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relayServer accepts websocket connections and forwards every frame to frames
func relayServer(t *testing.T, frames chan<- RelayMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg RelayMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			frames <- msg
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWebSocketSink_SendsFrames(t *testing.T) {
	frames := make(chan RelayMessage, 4)
	server := relayServer(t, frames)
	defer server.Close()

	sink := NewWebSocketSink(wsURL(server.URL))
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Send(ctx, testNotification()))
	require.NoError(t, sink.Send(ctx, testNotification()), "second send reuses the connection")

	for i := 0; i < 2; i++ {
		select {
		case msg := <-frames:
			assert.Equal(t, "match_events", msg.Type)
			assert.Equal(t, testMatchURL, msg.MatchURL)
			assert.Len(t, msg.Events, 3)
			assert.True(t, strings.HasPrefix(msg.Content, Header))
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not receive frame")
		}
	}
}

func TestWebSocketSink_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	sink := NewWebSocketSink(wsURL(server.URL))
	err := sink.Send(context.Background(), testNotification())
	assert.Error(t, err)
	assert.NoError(t, sink.Close(), "closing an unconnected sink is a no-op")
}
