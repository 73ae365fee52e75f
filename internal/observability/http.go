package observability

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type requestIDKey struct{}

// RequestIDHeader carries the caller's correlation id.
const RequestIDHeader = "X-Request-Id"

// WithRequestID stores the request id on ctx for code that has no gin.Context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ClientInfo identifies the device behind a request in operational events.
type ClientInfo struct {
	DeviceID string `json:"device_id,omitempty"`
	IP       string `json:"ip,omitempty"`
}

func ClientInfoFromRequest(r *http.Request) ClientInfo {
	return ClientInfo{DeviceID: r.Header.Get("X-Device-Id"), IP: IPFromRequest(r)}
}

func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
