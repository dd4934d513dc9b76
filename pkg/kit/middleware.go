package kit

import (
	"context"
	"log/slog"
	"time"
)

// Logging logs every call of the endpoint named name: debug on success,
// warn on error.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"duration", time.Since(start),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint ok", attrs...)
			}
			return resp, err
		}
	}
}

// Timeout bounds each call with a deadline. Zero disables it.
func Timeout(d time.Duration) Middleware {
	return func(next Endpoint) Endpoint {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, request any) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, request)
		}
	}
}
