package kit

import "context"

type contextKey string

const (
	TransportKey contextKey = "kit_transport" // "http", "mcp", "mcp_quic"
	RequestIDKey contextKey = "kit_request_id"
	SessionKey   contextKey = "kit_session"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

// WithSession tags the context with the client session that owns
// supersedable work such as heatmap rasterization.
func WithSession(ctx context.Context, s string) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}
func GetSession(ctx context.Context) string {
	v, _ := ctx.Value(SessionKey).(string)
	return v
}
