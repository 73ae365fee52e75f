package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"conversation-service/internal/apperr"
	"conversation-service/internal/auth"
	"conversation-service/internal/models"
	"conversation-service/internal/observability"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Authorizer resolves a conversation the caller participates in.
type Authorizer interface {
	Authorize(ctx context.Context, userID int64, conversationUUID uuid.UUID) (models.Conversation, error)
}

// ConversationWebSocketHandler streams live conversation events to participants.
type ConversationWebSocketHandler struct {
	hub           *Hub
	conversations Authorizer
	verifier      TokenVerifier
}

func NewConversationWebSocketHandler(hub *Hub, conversations Authorizer, verifier TokenVerifier) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, conversations: conversations, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in the conversation room.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"kind": apperr.KindNotFound, "message": "conversation not found"}})
		return
	}

	ctx, span := otel.Tracer("conversation-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claims, err := h.verifier.VerifyToken(bearerToken(c.Request))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": apperr.KindUnauthorized, "message": "invalid token"}})
		return
	}

	if _, err := h.conversations.Authorize(ctx, claims.UserID, conversationID); err != nil {
		status := http.StatusForbidden
		if apperr.Is(err, apperr.KindNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": gin.H{"kind": apperr.KindOf(err), "message": apperr.MessageOf(err)}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := observability.ClientInfoFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		DeviceID:    client.DeviceID,
		IP:          client.IP,
		RequestID:   observability.RequestIDFromContext(ctx),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)
	observability.IncWSActive()
	h.hub.publishEvent(ctx, conversationID, info, "ws_connect", "")

	// Clients only listen; reads exist to observe pongs and close frames.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conversationID, conn)
			observability.DecWSActive()
			h.hub.publishEvent(context.Background(), conversationID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()

		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		stop := make(chan struct{})
		defer close(stop)
		go h.keepAlive(conn, stop)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.hub.publishEvent(context.Background(), conversationID, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

func (h *ConversationWebSocketHandler) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
