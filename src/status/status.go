// Package status exposes a local websocket feed of assistant events so a
// companion UI (chat window, debug console) can mirror what the resident
// process is doing without polling logs.
package status

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one status update pushed to subscribers.
type Event struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Step    int       `json:"step,omitempty"`
	Total   int       `json:"total,omitempty"`
	Time    time.Time `json:"time"`
}

// Event kinds.
const (
	KindInfo     = "info"
	KindError    = "error"
	KindStep     = "step"
	KindComplete = "complete"
	KindRetry    = "retry"
)

const writeTimeout = 2 * time.Second

// Hub accepts websocket subscribers on a loopback port and fans events out
// to them. Publish never blocks the caller: a subscriber that cannot keep up
// is dropped.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]chan Event
	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan Event),
		upgrader: websocket.Upgrader{
			// Loopback only; the listener never binds a public interface.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start listens on 127.0.0.1:port. Port 0 disables the feed entirely.
func (h *Hub) Start(port int) error {
	if port == 0 {
		log.Printf("Status: feed disabled")
		return nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("status feed listen failed: %w", err)
	}
	h.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.handleSubscribe)
	h.server = &http.Server{Handler: mux}

	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Status: server stopped: %v", err)
		}
	}()
	log.Printf("Status: feed listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, or empty when the feed is disabled.
func (h *Hub) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *Hub) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Status: upgrade failed: %v", err)
		return
	}

	ch := make(chan Event, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	log.Printf("Status: subscriber connected from %s", conn.RemoteAddr())

	go h.writeLoop(conn, ch)

	// Drain reads so pings and close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan Event) {
	for ev := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("Status: write to %s failed, dropping: %v", conn.RemoteAddr(), err)
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Publish fans ev out to all subscribers. Slow subscribers whose buffer is
// full are dropped rather than blocking the event loop.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.mu.Lock()
	var full []*websocket.Conn
	for conn, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			full = append(full, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range full {
		log.Printf("Status: subscriber %s too slow, dropping", conn.RemoteAddr())
		h.drop(conn)
	}
}

// Close shuts the feed down and disconnects all subscribers.
func (h *Hub) Close() {
	if h.server != nil {
		h.server.Close()
	}
	h.mu.Lock()
	for conn, ch := range h.clients {
		delete(h.clients, conn)
		close(ch)
		conn.Close()
	}
	h.mu.Unlock()
}
