// internal/handler/websocket_types.go
package handler

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"camera-service/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	mu            sync.RWMutex
	lastSeen      time.Time
	subscriptions map[string]bool
}

// Subscribe limits the client to topics. A topic is an event type or a
// prefix of one, e.g. "transfer" or "transfer.progress".
func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscriptions == nil {
		c.subscriptions = make(map[string]bool)
	}
	c.subscriptions[topic] = true
}

func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, topic)
}

// Wants reports whether the client receives events of type t. A client
// without subscriptions receives everything.
func (c *Client) Wants(t model.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	name := string(t)
	for topic := range c.subscriptions {
		if name == topic || strings.HasPrefix(name, topic+".") {
			return true
		}
	}
	return false
}

// Subscriptions returns the current topics
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}
	return topics
}

// Touch records activity from the client
func (c *Client) Touch(at time.Time) {
	c.mu.Lock()
	c.lastSeen = at
	c.mu.Unlock()
}

// LastSeen returns the time of the last activity
func (c *Client) LastSeen() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeen
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// ConnectionManager manages WebSocket connections
type ConnectionManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	manager := &ConnectionManager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	go manager.run()
	return manager
}

// run starts the connection manager
func (cm *ConnectionManager) run() {
	for {
		select {
		case client := <-cm.register:
			cm.mutex.Lock()
			cm.clients[client.ID] = client
			cm.mutex.Unlock()

		case client := <-cm.unregister:
			cm.mutex.Lock()
			if _, ok := cm.clients[client.ID]; ok {
				delete(cm.clients, client.ID)
				close(client.Send)
			}
			cm.mutex.Unlock()

		case <-cm.done:
			return
		}
	}
}

// Register registers a new client
func (cm *ConnectionManager) Register(client *Client) {
	select {
	case cm.register <- client:
	case <-cm.done:
	}
}

// Unregister unregisters a client
func (cm *ConnectionManager) Unregister(client *Client) {
	select {
	case cm.unregister <- client:
	case <-cm.done:
	}
}

// Stop ends the manager loop and closes every connection
func (cm *ConnectionManager) Stop() {
	close(cm.done)
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	for id, client := range cm.clients {
		client.Connection.Close()
		delete(cm.clients, id)
	}
}

// Clients returns a snapshot of the connected clients
func (cm *ConnectionManager) Clients() []*Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	clients := make([]*Client, 0, len(cm.clients))
	for _, client := range cm.clients {
		clients = append(clients, client)
	}
	return clients
}

// Each calls fn for every client under the read lock, so no Send channel
// is closed while fn runs. fn must not block.
func (cm *ConnectionManager) Each(fn func(*Client)) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	for _, client := range cm.clients {
		fn(client)
	}
}

// Stale returns clients with no activity since before cutoff
func (cm *ConnectionManager) Stale(cutoff time.Time) []*Client {
	var stale []*Client
	for _, client := range cm.Clients() {
		if client.LastSeen().Before(cutoff) {
			stale = append(stale, client)
		}
	}
	return stale
}

// GetStats returns connection statistics
func (cm *ConnectionManager) GetStats() *ConnectionStats {
	clients := cm.Clients()
	stats := &ConnectionStats{
		TotalConnections: len(clients),
		Clients:          make([]ClientInfo, 0, len(clients)),
	}
	for _, client := range clients {
		stats.Clients = append(stats.Clients, ClientInfo{
			ID:            client.ID,
			RemoteAddr:    client.RemoteAddr,
			UserAgent:     client.UserAgent,
			ConnectedAt:   client.ConnectedAt,
			LastSeen:      client.LastSeen(),
			Subscriptions: client.Subscriptions(),
		})
	}
	return stats
}

// ClientInfo describes one connected client
type ClientInfo struct {
	ID            string    `json:"id"`
	RemoteAddr    string    `json:"remote_addr"`
	UserAgent     string    `json:"user_agent"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastSeen      time.Time `json:"last_seen"`
	Subscriptions []string  `json:"subscriptions,omitempty"`
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int          `json:"total_connections"`
	Clients          []ClientInfo `json:"clients"`
}
