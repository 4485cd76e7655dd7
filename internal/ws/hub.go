package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// sender is the transport side of a connected participant as the coordinator
// sees it: an identity plus an ordered outbound channel.
type sender interface {
	UserID() string
	Send(data []byte)
	Close()
}

// Client represents a WebSocket client connection.
type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client with the given connection id.
func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

// UserID returns the connection id assigned to this client.
func (c *Client) UserID() string {
	return c.userID
}

// Send queues a message to be sent to the client. A client that cannot keep
// up with its send buffer is closed rather than allowed to stall the room.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// Close closes the client's outbound channel.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the outbound channel for the write pump.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub fans broadcasts out to every client in one room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]sender
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]sender),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.UserID()] = client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, userID)
}

// Broadcast sends a message to every client in the room, sender included.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.Send(data)
	}
}

// BroadcastExcept sends a message to every client in the room except one.
func (h *Hub) BroadcastExcept(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.clients {
		if id == userID {
			continue
		}
		client.Send(data)
	}
}

// SendTo sends a message to a single client, if still connected.
func (h *Hub) SendTo(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[userID]; ok {
		client.Send(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections and the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]sender, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]sender)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

// HubManager manages one hub per live room.
type HubManager struct {
	hubs map[string]*Hub
	mu   sync.RWMutex
}

// NewHubManager creates a new HubManager.
func NewHubManager() *HubManager {
	return &HubManager{
		hubs: make(map[string]*Hub),
	}
}

// GetOrCreate returns an existing hub or creates a new one for the room.
func (m *HubManager) GetOrCreate(roomID string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		return hub
	}

	hub := NewHub()
	m.hubs[roomID] = hub
	return hub
}

// Get returns the hub for the room, or nil if not found.
func (m *HubManager) Get(roomID string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// Remove removes and closes the hub for the room.
func (m *HubManager) Remove(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		hub.Close()
		delete(m.hubs, roomID)
	}
}

// Close closes all hubs.
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hub := range m.hubs {
		hub.Close()
	}
	m.hubs = make(map[string]*Hub)
}
