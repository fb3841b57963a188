package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	s.clientsMu.Lock()
	before := len(s.clients)
	s.clientsMu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// registration happens after the handshake; wait for the handler
	require.Eventually(t, func() bool {
		s.clientsMu.Lock()
		defer s.clientsMu.Unlock()
		return len(s.clients) > before
	}, time.Second, 5*time.Millisecond)
	return conn
}

func TestPublish_ReachesConnectedClient(t *testing.T) {
	s := NewServer("unused", zerolog.Nop())
	go s.handleBroadcasts()

	conn := dialTestServer(t, s)

	s.Publish(map[string]interface{}{"state": "live", "level": 0.5})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got map[string]interface{}
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, "live", got["state"])
	assert.InDelta(t, 0.5, got["level"], 1e-9)
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	s := NewServer("unused", zerolog.Nop())
	// no broadcast goroutine; the queue fills and Publish must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			s.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestClose_WithConcurrentPublisher(t *testing.T) {
	s := NewServer("unused", zerolog.Nop())
	go s.handleBroadcasts()

	// a snapshot publisher keeps ticking while the server shuts down
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.Publish(map[string]int{"tick": i})
		}
	}()

	require.NoError(t, s.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not finish after Close")
	}

	// late publishes and a double Close are no-ops
	assert.NotPanics(t, func() { s.Publish("late") })
	assert.NoError(t, s.Close())
}

func TestPublish_MultipleClients(t *testing.T) {
	s := NewServer("unused", zerolog.Nop())
	go s.handleBroadcasts()

	c1 := dialTestServer(t, s)
	c2 := dialTestServer(t, s)

	s.Publish(map[string]string{"status": "idle"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var got map[string]string
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "idle", got["status"])
	}
}
