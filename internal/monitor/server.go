// Package monitor serves a local websocket feed of session snapshots for a
// debugging UI. Optional; nothing in the pipeline depends on it.
package monitor

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server broadcasts snapshots to every connected websocket client
type Server struct {
	addr      string
	log       zerolog.Logger
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	closed    bool
	broadcast chan interface{}
	server    *http.Server
}

// NewServer creates a monitor server on addr (e.g. "localhost:8788")
func NewServer(addr string, log zerolog.Logger) *Server {
	return &Server{
		addr: addr,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// local debugging endpoint only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan interface{}, 256),
	}
}

// Start begins serving. Non-blocking.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		s.log.Info().Str("addr", s.addr).Msg("monitor feed listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("monitor server")
		}
	}()
	go s.handleBroadcasts()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("monitor upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.log.Debug().Int("clients", total).Msg("monitor client connected")

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()
}

func (s *Server) handleBroadcasts() {
	for data := range s.broadcast {
		s.clientsMu.Lock()
		for client := range s.clients {
			if err := client.WriteJSON(data); err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMu.Unlock()
	}
}

// Publish queues data for broadcast. Drops when the queue is full so a
// stalled client never blocks the render loop. Safe to call after Close;
// the data is discarded.
func (s *Server) Publish(data interface{}) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.broadcast <- data:
	default:
	}
}

// Close shuts the server down. Publishers may still be running; the closed
// flag keeps them off the broadcast channel before it is closed.
func (s *Server) Close() error {
	s.clientsMu.Lock()
	if s.closed {
		s.clientsMu.Unlock()
		return nil
	}
	s.closed = true
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.clientsMu.Unlock()

	close(s.broadcast)
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
