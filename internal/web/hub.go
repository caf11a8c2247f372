package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 45 * time.Second
	readDeadline = 90 * time.Second
	clientBuffer = 64
)

// Event is one message pushed to dashboard tabs
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	out  chan Event
	done chan struct{}
}

// Hub fans engine events out to every connected tab. Slow tabs drop events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- ev:
		default:
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and sends greeting first, then every broadcast
func (h *Hub) ServeWS(greeting func() Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("⚠️ WebSocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		cl := &client{conn: conn, out: make(chan Event, clientBuffer), done: make(chan struct{})}
		if greeting != nil {
			cl.out <- greeting()
		}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, cl)
			h.mu.Unlock()
			close(cl.done)
		}()

		go cl.writeLoop()

		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readDeadline))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (c *client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case ev := <-c.out:
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
