// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ble-discovery-service/internal/model"
	"ble-discovery-service/internal/service"
	"ble-discovery-service/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// topics maps bus event types to the message types streamed to clients
var topics = map[model.EventType]string{
	model.EventPeripheralDiscovered: MessageTypePeripheralDiscovered,
	model.EventScanStateChanged:     MessageTypeScanState,
	model.EventSuspensionChanged:    MessageTypeSuspension,
	model.EventDeviceConnected:      MessageTypeConnection,
	model.EventDeviceDisconnected:   MessageTypeConnection,
}

// WebSocketHandler streams discovery events to WebSocket clients
type WebSocketHandler struct {
	upgrader         websocket.Upgrader
	connections      *ConnectionManager
	discoveryService *service.DiscoveryService
	eventBus         *EventBus
	logger           *utils.ServiceLogger
	done             chan struct{}
}

// NewWebSocketHandler creates a new WebSocket handler and starts forwarding
// bus events to connected clients. Origins are unrestricted when
// allowedOrigins is empty.
func NewWebSocketHandler(
	discoveryService *service.DiscoveryService,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	h := &WebSocketHandler{
		upgrader:         upgrader,
		connections:      NewConnectionManager(),
		discoveryService: discoveryService,
		eventBus:         eventBus,
		logger:           utils.NewServiceLogger(logger, "websocket-handler"),
		done:             make(chan struct{}),
	}

	for eventType := range topics {
		go h.forward(eventType, eventBus.Subscribe(eventType))
	}

	return h
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// HandleDiscoveryConnection upgrades the request and streams discovery events
// @Summary Discovery event stream
// @Description WebSocket stream of peripheral_discovered, scan_state, suspension and connection messages
// @Tags Discovery
// @Success 101 "Switching protocols"
// @Router /ws/discoveries [get]
func (h *WebSocketHandler) HandleDiscoveryConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("Discovery WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      MessageTypeScanState,
		Data:      h.discoveryService.Status(context.Background()),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// forward relays one bus subscription to the clients
func (h *WebSocketHandler) forward(eventType model.EventType, events <-chan model.Event) {
	topic := topics[eventType]

	for {
		select {
		case <-h.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(topic, &WebSocketMessage{
				Type:      topic,
				Data:      event.Data,
				Timestamp: event.Timestamp,
			})
		}
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Discovery WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe", "unsubscribe":
		topic := messageTopic(message)
		if topic == "" {
			h.sendError(client, "topic is required")
			return
		}
		if message.Type == "subscribe" {
			client.Subscribe(topic)
			h.sendMessage(client, &WebSocketMessage{
				Type:      MessageTypeSubscribed,
				Data:      map[string]interface{}{"topic": topic},
				Timestamp: time.Now(),
			})
		} else {
			client.Unsubscribe(topic)
		}
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now(),
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, "unknown message type: "+message.Type)
	}
}

func messageTopic(message *WebSocketMessage) string {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		return ""
	}
	topic, _ := data["topic"].(string)
	return topic
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case client.Send <- messageBytes:
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: MessageTypeError,
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
	})
}

// broadcast sends message to every client subscribed to topic
func (h *WebSocketHandler) broadcast(topic string, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	if dropped := h.connections.Broadcast(topic, messageBytes); dropped > 0 {
		h.logger.Warn("Client send channel full during broadcast",
			zap.String("topic", topic),
			zap.Int("dropped", dropped),
		)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	return h.connections.Count()
}

// Close stops forwarding bus events
func (h *WebSocketHandler) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}
