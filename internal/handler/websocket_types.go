// internal/handler/websocket_types.go
package handler

import (
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"printer-service/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	mutex  sync.Mutex
	topics []model.EventType
	closed bool
}

// Topics returns the event types the client filters on. Empty means all.
func (c *Client) Topics() []model.EventType {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return slices.Clone(c.topics)
}

// Subscribe adds an event type to the client filter
func (c *Client) Subscribe(t model.EventType) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !slices.Contains(c.topics, t) {
		c.topics = append(c.topics, t)
	}
}

// Unsubscribe removes an event type from the client filter
func (c *Client) Unsubscribe(t model.EventType) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.topics = slices.DeleteFunc(c.topics, func(x model.EventType) bool { return x == t })
}

// Wants reports whether the filter lets t through
func (c *Client) Wants(t model.EventType) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.topics) == 0 || slices.Contains(c.topics, t)
}

// enqueue queues a frame without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ClientHub tracks connected WebSocket clients
type ClientHub struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewClientHub creates an empty hub
func NewClientHub() *ClientHub {
	return &ClientHub{clients: make(map[string]*Client)}
}

// Register registers a new client
func (h *ClientHub) Register(client *Client) {
	h.mutex.Lock()
	h.clients[client.ID] = client
	h.mutex.Unlock()
}

// Unregister removes a client and closes its send queue
func (h *ClientHub) Unregister(client *Client) {
	h.mutex.Lock()
	delete(h.clients, client.ID)
	h.mutex.Unlock()
	client.close()
}

// Count returns the number of connected clients
func (h *ClientHub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// CloseAll unregisters every client
func (h *ClientHub) CloseAll() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, id)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// GetStats returns connection statistics
func (h *ClientHub) GetStats() *ConnectionStats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(h.clients),
		Clients:          make([]*Client, 0, len(h.clients)),
	}
	for _, client := range h.clients {
		stats.Clients = append(stats.Clients, client)
	}
	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int       `json:"total_connections"`
	Clients          []*Client `json:"clients"`
}
