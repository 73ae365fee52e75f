package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/apperr"
	"conversation-service/internal/auth"
	"conversation-service/internal/models"
	"conversation-service/internal/observability"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(nil)
	id := uuid.New()

	client, server := dialPair(t, hub, id)
	assert.Equal(t, 1, hub.ClientCount(id))

	hub.RemoveClient(id, server)
	assert.Equal(t, 0, hub.ClientCount(id))
	assert.Empty(t, hub.rooms)

	// removing stops the writer, which closes the socket
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)

	hub.RemoveClient(id, server)
}

func TestHubBroadcastWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Broadcast(models.ConversationEvent{Type: models.EventRead, ConversationUUID: uuid.New()})
}

// dialPair registers a server-side connection in hub and returns both ends.
func dialPair(t *testing.T, hub *Hub, id uuid.UUID) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	registered := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(id, conn, ConnInfo{ConnID: newConnID()})
		registered <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, <-registered
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub(nil)
	room, other := uuid.New(), uuid.New()
	inRoom, _ := dialPair(t, hub, room)
	outside, _ := dialPair(t, hub, other)

	msg := models.Message{UUID: uuid.New(), SenderID: 1, Body: "hello", Type: models.MessageTypeText}
	hub.Broadcast(models.ConversationEvent{Type: models.EventMessage, ConversationUUID: room, Message: &msg})

	_ = inRoom.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := inRoom.ReadMessage()
	require.NoError(t, err)

	var got models.ConversationEvent
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, models.EventMessage, got.Type)
	assert.Equal(t, room, got.ConversationUUID)
	require.NotNil(t, got.Message)
	assert.Equal(t, "hello", got.Message.Body)

	_ = outside.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = outside.ReadMessage()
	assert.Error(t, err)
}

func TestHubBroadcastDropsLaggingClient(t *testing.T) {
	pub := &recordingPublisher{}
	hub := NewHub(pub)
	id := uuid.New()
	// no writer drains this queue, so the first broadcast finds it full
	stuck := &client{info: ConnInfo{ConnID: "stuck"}, send: make(chan []byte)}
	hub.rooms[id] = map[*websocket.Conn]*client{nil: stuck}

	done := make(chan struct{})
	go func() {
		hub.Broadcast(models.ConversationEvent{Type: models.EventRead, ConversationUUID: id})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a client that is not reading")
	}
	assert.Equal(t, 0, hub.ClientCount(id))
	_, open := <-stuck.send
	assert.False(t, open)
	assert.Equal(t, []string{"ws_error"}, pub.names())
}

func TestHubBroadcastDoesNotWaitForSocketWrites(t *testing.T) {
	hub := NewHub(nil)
	id := uuid.New()
	client, _ := dialPair(t, hub, id)

	start := time.Now()
	for i := 0; i < sendBuffer; i++ {
		hub.Broadcast(models.ConversationEvent{Type: models.EventRead, ConversationUUID: id, ReaderID: int64(i)})
	}
	assert.Less(t, time.Since(start), writeWait)

	for i := 0; i < sendBuffer; i++ {
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := client.ReadMessage()
		require.NoError(t, err)
		var got models.ConversationEvent
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, int64(i), got.ReaderID)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(observability.EventEnvelope); ok {
		p.events = append(p.events, e.EventName)
	}
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type stubAuthorizer struct {
	conv models.Conversation
}

func (s stubAuthorizer) Authorize(_ context.Context, userID int64, id uuid.UUID) (models.Conversation, error) {
	if id != s.conv.UUID {
		return models.Conversation{}, apperr.NotFound("conversation not found")
	}
	if !s.conv.IsParticipant(userID) {
		return models.Conversation{}, apperr.Unauthorized("you are not a participant of this conversation")
	}
	return s.conv, nil
}

func TestConversationWebSocketHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conv := models.Conversation{UUID: uuid.New(), BuyerID: 1, SellerID: 2}
	jwt := auth.NewJWTManager("secret", time.Minute)
	hub := NewHub(nil)

	router := gin.New()
	router.GET("/ws/conversations/:uuid", NewConversationWebSocketHandler(hub, stubAuthorizer{conv: conv}, jwt).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/conversations/"

	t.Run("rejects missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base+conv.UUID.String(), nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects outsider", func(t *testing.T) {
		token, _, err := jwt.GenerateToken(3, "")
		require.NoError(t, err)
		_, resp, err := websocket.DefaultDialer.Dial(base+conv.UUID.String()+"?token="+token, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("rejects unknown conversation", func(t *testing.T) {
		token, _, err := jwt.GenerateToken(1, "")
		require.NoError(t, err)
		_, resp, err := websocket.DefaultDialer.Dial(base+uuid.NewString()+"?token="+token, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("participant receives events", func(t *testing.T) {
		token, _, err := jwt.GenerateToken(2, "")
		require.NoError(t, err)
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		client, _, err := websocket.DefaultDialer.Dial(base+conv.UUID.String(), header)
		require.NoError(t, err)
		defer client.Close()

		require.Eventually(t, func() bool { return hub.ClientCount(conv.UUID) == 1 }, time.Second, 10*time.Millisecond)
		hub.Broadcast(models.ConversationEvent{Type: models.EventRead, ConversationUUID: conv.UUID, ReaderID: 1})

		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"type":"read"`)
	})
}
