package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/metrics"
	"github.com/gmv-dashboard/backend/pkg/logger"
)

// RefreshEvent tells connected dashboards that cached data changed and the
// named sources should be re-requested.
type RefreshEvent struct {
	Type    string    `json:"type"`
	Sources []string  `json:"sources"`
	Entries int       `json:"entries"`
	At      time.Time `json:"at"`
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// subscriber serializes writes: a websocket connection allows one writer.
type subscriber struct {
	mu   sync.Mutex
	conn jsonWriter
}

func (s *subscriber) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Hub fans refresh events out to every connected dashboard.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*subscriber)}
}

func (h *Hub) add(conn jsonWriter) (string, *subscriber) {
	id := uuid.NewString()
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	h.subscribers[id] = sub
	metrics.RefreshSubscribers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()
	return id, sub
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	metrics.RefreshSubscribers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast sends ev to every subscriber. A subscriber whose write fails is
// dropped; its read loop notices the closed connection on its own.
func (h *Hub) Broadcast(ev RefreshEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, s := range h.subscribers {
		subs[id] = s
	}
	h.mu.RUnlock()

	for id, s := range subs {
		if err := s.send(ev); err != nil {
			logger.Warn("Dropping refresh subscriber", zap.String("client_id", id), zap.Error(err))
			h.remove(id)
		}
	}
}

type WebSocketHandler struct {
	hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	id, sub := h.hub.add(c)
	logger.Info("WebSocket connection established", zap.String("client_id", id))

	defer func() {
		h.hub.remove(id)
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("client_id", id))
	}()

	if err := sub.send(map[string]interface{}{"type": "connected", "client_id": id}); err != nil {
		return
	}

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.String("client_id", id), zap.Error(err))
			return
		}

		if msg.Type == "ping" {
			if err := sub.send(map[string]interface{}{"type": "pong"}); err != nil {
				return
			}
		}
	}
}
