package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"conversation-service/internal/models"
	"conversation-service/internal/observability"
)

const (
	writeWait = 10 * time.Second
	// sendBuffer is how many events a client may lag behind before it is dropped.
	sendBuffer = 32

	routingKey = "ws_events.conversations"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type client struct {
	conn *websocket.Conn
	info ConnInfo
	send chan []byte
}

// Hub maintains one websocket room per conversation. Every client is written
// by its own goroutine; Broadcast only enqueues.
type Hub struct {
	rooms     map[uuid.UUID]map[*websocket.Conn]*client
	publisher Publisher
	mu        sync.RWMutex
}

// NewHub creates an empty hub. A nil publisher disables operational events.
func NewHub(publisher Publisher) *Hub {
	return &Hub{
		rooms:     make(map[uuid.UUID]map[*websocket.Conn]*client),
		publisher: publisher,
	}
}

// AddClient registers a websocket connection to a conversation room and starts its writer.
func (h *Hub) AddClient(conversationID uuid.UUID, conn *websocket.Conn, info ConnInfo) {
	c := &client{conn: conn, info: info, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[conversationID][conn] = c
	h.mu.Unlock()

	go h.writePump(conversationID, c)
}

// RemoveClient unregisters a connection, stops its writer and drops empty rooms.
func (h *Hub) RemoveClient(conversationID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conversationID, conn)
}

func (h *Hub) removeLocked(conversationID uuid.UUID, conn *websocket.Conn) bool {
	clients, ok := h.rooms[conversationID]
	if !ok {
		return false
	}
	c, ok := clients[conn]
	if !ok {
		return false
	}
	delete(clients, conn)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, conversationID)
	}
	return true
}

// ClientCount reports the connections currently in a room.
func (h *Hub) ClientCount(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Broadcast queues the event for every client in its conversation without
// waiting on any socket. Clients whose buffer is full are disconnected.
func (h *Hub) Broadcast(event models.ConversationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}

	var lagging []*client
	h.mu.RLock()
	for _, c := range h.rooms[event.ConversationUUID] {
		select {
		case c.send <- payload:
		default:
			lagging = append(lagging, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range lagging {
		h.mu.Lock()
		removed := h.removeLocked(event.ConversationUUID, c.conn)
		h.mu.Unlock()
		if removed {
			log.Printf("websocket client dropped conn_id=%s: send buffer full", c.info.ConnID)
			h.publishEvent(context.Background(), event.ConversationUUID, c.info, "ws_error", "send buffer full")
		}
	}
	observability.IncWSEvent(event.Type)
}

// writePump drains the client's queue onto the socket until the client is removed.
func (h *Hub) writePump(conversationID uuid.UUID, c *client) {
	defer c.conn.Close()
	failed := false
	for payload := range c.send {
		if failed {
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error conn_id=%s: %v", c.info.ConnID, err)
			failed = true
			h.publishEvent(context.Background(), conversationID, c.info, "ws_error", err.Error())
			h.RemoveClient(conversationID, c.conn)
		}
	}
}

func (h *Hub) publishEvent(ctx context.Context, conversationID uuid.UUID, info ConnInfo, name, reason string) {
	observability.IncWSEvent(name)
	if h.publisher == nil {
		return
	}
	_ = h.publisher.Publish(ctx, routingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
		Payload:   info.payload(conversationID.String(), name, reason),
	})
}
