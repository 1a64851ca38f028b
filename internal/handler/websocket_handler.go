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

	"camera-service/internal/model"
	"camera-service/internal/service"
	"camera-service/internal/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketHandler streams camera events to browsers
type WebSocketHandler struct {
	upgrader      websocket.Upgrader
	connections   *ConnectionManager
	cameraService *service.CameraService
	eventBus      *EventBus
	logger        *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	cameraService *service.CameraService,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return &WebSocketHandler{
		upgrader:      upgrader,
		connections:   NewConnectionManager(),
		cameraService: cameraService,
		eventBus:      eventBus,
		logger:        utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Start forwards bus events to clients until ctx is done
func (h *WebSocketHandler) Start(ctx context.Context) {
	events := h.eventBus.Subscribe(AllEvents)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.BroadcastEvent(event)
		}
	}
}

// Stop closes every client connection
func (h *WebSocketHandler) Stop() {
	h.connections.Stop()
}

// HandleConnection upgrades a request to a websocket event stream
// @Summary Camera event stream
// @Description Upgrades to a websocket that receives catalog, transfer and camera events
// @Tags websocket
// @Router /ws [get]
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	now := time.Now()
	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: now,
	}
	client.Touch(now)
	for _, topic := range c.QueryArray("topic") {
		client.Subscribe(topic)
	}

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "status",
		Data:      h.cameraService.Status(c.Request.Context()),
		Timestamp: now,
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Touch(time.Now())
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
		client.Touch(time.Now())

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
				h.logger.Debug("WebSocket write error",
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
		topic := topicOf(message)
		if topic == "" {
			h.sendError(client, "topic is required")
			return
		}
		if message.Type == "subscribe" {
			client.Subscribe(topic)
		} else {
			client.Unsubscribe(topic)
		}
		h.sendMessage(client, &WebSocketMessage{
			Type:      message.Type + "d",
			Data:      map[string]any{"topic": topic},
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "status":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "status",
			Data:      h.cameraService.Status(context.Background()),
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.sendError(client, "unknown message type: "+message.Type)
	}
}

func topicOf(message *WebSocketMessage) string {
	data, ok := message.Data.(map[string]any)
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
		Type:      "error",
		Data:      map[string]any{"error": errorMsg},
		Timestamp: time.Now(),
	})
}

// BroadcastEvent sends an event to every client subscribed to its type
func (h *WebSocketHandler) BroadcastEvent(event *model.Event) {
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      "event",
		Data:      event,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.connections.Each(func(client *Client) {
		if !client.Wants(event.EventType) {
			return
		}
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("Client send channel full during broadcast",
				zap.String("client_id", client.ID),
			)
		}
	})
}

// CleanupStale closes connections silent for longer than maxIdle
func (h *WebSocketHandler) CleanupStale(maxIdle time.Duration) int {
	stale := h.connections.Stale(time.Now().Add(-maxIdle))
	for _, client := range stale {
		h.logger.Info("Closing stale WebSocket client", zap.String("client_id", client.ID))
		client.Connection.Close()
	}
	return len(stale)
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
