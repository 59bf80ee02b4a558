// internal/handler/websocket_types.go
package handler

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket message types
const (
	MessageTypePeripheralDiscovered = "peripheral_discovered"
	MessageTypeScanState            = "scan_state"
	MessageTypeSuspension           = "suspension"
	MessageTypeConnection           = "connection"
	MessageTypeSubscribed           = "subscription_confirmed"
	MessageTypePong                 = "pong"
	MessageTypeError                = "error"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	// Topics the client asked for. An empty set receives every topic.
	subscriptions map[string]bool
	subMutex      sync.RWMutex
}

// Subscribe adds a topic to the client's filter
func (c *Client) Subscribe(topic string) {
	c.subMutex.Lock()
	defer c.subMutex.Unlock()

	if c.subscriptions == nil {
		c.subscriptions = make(map[string]bool)
	}
	c.subscriptions[topic] = true
}

// Unsubscribe removes a topic from the client's filter
func (c *Client) Unsubscribe(topic string) {
	c.subMutex.Lock()
	defer c.subMutex.Unlock()
	delete(c.subscriptions, topic)
}

// Wants reports whether the client receives messages of topic
func (c *Client) Wants(topic string) bool {
	c.subMutex.RLock()
	defer c.subMutex.RUnlock()
	return len(c.subscriptions) == 0 || c.subscriptions[topic]
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConnectionManager manages WebSocket connections
type ConnectionManager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

// Register registers a new client
func (cm *ConnectionManager) Register(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.clients[client.ID] = client
}

// Unregister unregisters a client and closes its send channel
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if _, ok := cm.clients[client.ID]; ok {
		delete(cm.clients, client.ID)
		close(client.Send)
	}
}

// Broadcast queues message for every client subscribed to topic and returns
// the number of clients whose queue was full.
func (cm *ConnectionManager) Broadcast(topic string, message []byte) (dropped int) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, client := range cm.clients {
		if !client.Wants(topic) {
			continue
		}
		select {
		case client.Send <- message:
		default:
			dropped++
		}
	}
	return dropped
}

// Count returns the number of connected clients
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}
