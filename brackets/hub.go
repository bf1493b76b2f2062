package brackets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TopicLive receives every match event of every bracket.
const TopicLive = "live"

func BracketTopic(bracketID int) string {
	return fmt.Sprintf("bracket:%d", bracketID)
}

func EventTopic(eventID int) string {
	return fmt.Sprintf("event:%d", eventID)
}

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// NewClient creates a subscriber of one topic. Conn may be nil for in-process consumers.
func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
		Room: room,
	}
}

// WebSocketMessage is the envelope of every live message.
// ID is unique per publish so consumers can dedupe redeliveries.
type WebSocketMessage struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run owns room membership until ctx is cancelled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			size := len(h.rooms[client.Room])
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()
			h.logger.Debug("client registered", slog.String("room", client.Room), slog.Int("room_size", size))

		case client := <-h.Unregister:
			h.removeClient(client)

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					client.close()
					metrics.WebsocketClients.Dec()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[client.Room]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	client.close()
	delete(clients, client)
	metrics.WebsocketClients.Dec()
	if len(clients) == 0 {
		delete(h.rooms, client.Room)
		h.logger.Debug("room closed as it's empty", slog.String("room", client.Room))
	}
}

// Publish wraps payload in an envelope and fans it out to the topic's subscribers.
// It never blocks: topics without subscribers and full client buffers drop the message.
func (h *Hub) Publish(topic, eventType string, payload interface{}) {
	msg := WebSocketMessage{
		ID:      uuid.NewString(),
		Type:    eventType,
		Topic:   topic,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}
	metrics.BroadcastsPublished.WithLabelValues(eventType).Inc()
	h.BroadcastToRoom(topic, msg)
}

// BroadcastToRoom отправляет сообщение всем клиентам в указанной комнате.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		metrics.BroadcastsDropped.WithLabelValues("no_subscribers").Inc()
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		metrics.BroadcastsDropped.WithLabelValues("marshal").Inc()
		h.logger.Error("failed to marshal live message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			metrics.BroadcastsDropped.WithLabelValues("slow_client").Inc()
			h.logger.Warn("client send buffer full, dropping message", slog.String("room", roomID))
		}
		client.Mu.Unlock()
	}
}

// Subscribe registers the client with a running hub. It reports false once the hub has stopped.
func (h *Hub) Subscribe(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// RoomSize returns the number of subscribers of a topic.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (c *Client) close() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if !c.IsClosed {
		close(c.Send)
		c.IsClosed = true
	}
}

// ReadPump drains the connection so control frames are processed. Client messages are ignored.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket closed unexpectedly", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Каждое сообщение отдельным фреймом, чтобы клиент получал валидный JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("websocket write failed", slog.String("room", c.Room), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Hub.logger.Debug("websocket ping failed", slog.String("room", c.Room), slog.Any("error", err))
				return
			}
		}
	}
}
