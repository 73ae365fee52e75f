package observability

// EventEnvelope wraps operational events published to the bus.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	RequestID string      `json:"request_id,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

func (e EventEnvelope) Name() string { return e.EventType + ":" + e.EventName }
