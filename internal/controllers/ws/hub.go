package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// sendBuffer is the per-client outbound queue depth. A client that falls this
// far behind starts losing broadcasts instead of stalling everyone else.
const sendBuffer = 256

// Client is one attached connection together with its outbound queue. The
// hub owns the write side; the handler keeps reading until the peer goes away
// and then detaches.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// TrySend queues msg for this client without blocking. Reports false when the
// queue is full and the message was dropped.
func (c *Client) TrySend(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub fans snapshot and schedule messages out to every attached client.
type Hub struct {
	log *log.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub returns an empty hub. A nil logger falls back to the default one.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:     logger,
		clients: make(map[*Client]struct{}),
	}
}

// Attach registers the connection and starts its write loop.
func (h *Hub) Attach(conn *websocket.Conn) *Client {
	c := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writeLoop()
	return c
}

// Detach removes the client and closes its queue, which ends the write loop.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every attached client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.TrySend(msg) {
			h.log.Printf("ws: dropping message for slow client")
		}
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
