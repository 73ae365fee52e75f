package ws

import "time"

// ConnInfo describes one websocket client for operational events.
type ConnInfo struct {
	ConnID      string
	UserID      int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) payload(conversationID, event, reason string) map[string]interface{} {
	var durationMs int64
	if !i.ConnectedAt.IsZero() {
		durationMs = time.Since(i.ConnectedAt).Milliseconds()
	}
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":              "conversation",
			"conversation_uuid": conversationID,
			"event":             event,
			"conn_id":           i.ConnID,
			"duration_ms":       durationMs,
			"reason":            reason,
		},
		"identity": map[string]interface{}{
			"user_id":   i.UserID,
			"device_id": i.DeviceID,
			"ip":        i.IP,
		},
	}
}
