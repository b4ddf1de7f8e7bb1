// Package server exposes the bridge to clients: a WebSocket endpoint carrying
// the JSON protocol and a static file server for the touch UI.
package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/protocol"
)

// Hub fans server messages out from the bridge to N connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *logrus.Entry
}

// Client is one connected WebSocket peer.
type Client struct {
	ID   string
	C    chan []byte // buffered channel of marshalled frames
	done chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     logging.Component("hub"),
	}
}

// Subscribe registers a new client.
func (h *Hub) Subscribe() *Client {
	c := &Client{
		ID:   uuid.NewString(),
		C:    make(chan []byte, 256),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unsubscribe removes a client and signals its write pump to stop.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast marshals once and fans the frame out to every client. Slow
// clients get frames dropped rather than blocking the broadcast.
func (h *Hub) Broadcast(m protocol.ServerMessage) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.WithError(err).Errorf("marshal %s", m.Type)
		return
	}
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.C <- data:
		default:
			// client too slow, drop frame to keep broadcast moving
		}
	}
	h.mu.RUnlock()
}

// Send queues one message for a single client, dropping it if the client's
// buffer is full.
func (c *Client) Send(m protocol.ServerMessage) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	select {
	case c.C <- data:
	case <-c.done:
	default:
	}
}

// Done is closed when the client is unsubscribed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
