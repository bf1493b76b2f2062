package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *brackets.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts connections whose Origin is in allowedOrigins; "*" allows any.
func NewWebSocketHandler(hub *brackets.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // не браузер
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, o := range allowed {
			if strings.EqualFold(strings.TrimRight(o, "/"), u.Scheme+"://"+u.Host) {
				return true
			}
		}
		return false
	}
}

// ServeLive godoc
// @Summary Поток всех live-событий матчей
// @Tags realtime
// @Router /ws/live [get]
func (h *WebSocketHandler) ServeLive(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, brackets.TopicLive)
}

// ServeBracket godoc
// @Summary Поток событий одной сетки
// @Tags realtime
// @Param bracketID path int true "Bracket ID"
// @Router /ws/brackets/{bracketID} [get]
func (h *WebSocketHandler) ServeBracket(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, brackets.BracketTopic(bracketID))
}

// ServeEvent godoc
// @Summary Поток событий всех сеток турнира
// @Tags realtime
// @Param eventID path int true "Event ID"
// @Router /ws/events/{eventID} [get]
func (h *WebSocketHandler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, brackets.EventTopic(eventID))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.Warn("websocket upgrade failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}

	client := brackets.NewClient(h.hub, conn, topic)
	if !h.hub.Subscribe(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client subscribed", slog.String("topic", topic))
}
