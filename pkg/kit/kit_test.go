package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				trace = append(trace, name)
				return next(ctx, req)
			}
		}
	}
	ep := Chain(mw("a"), mw("b"), mw("c"))(func(context.Context, any) (any, error) {
		trace = append(trace, "endpoint")
		return nil, nil
	})
	ep(context.Background(), nil)

	if got := strings.Join(trace, ","); got != "a,b,c,endpoint" {
		t.Errorf("trace = %s, want a,b,c,endpoint", got)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := Logging(logger, "parse")(func(context.Context, any) (any, error) { return 1, nil })
	fail := Logging(logger, "rasterize")(func(context.Context, any) (any, error) { return nil, errors.New("boom") })

	ctx := WithRequestID(WithTransport(context.Background(), "mcp"), "req-1")
	if v, err := ok(ctx, nil); v != 1 || err != nil {
		t.Fatalf("ok = %v, %v", v, err)
	}
	if _, err := fail(ctx, nil); err == nil {
		t.Fatal("expected error to pass through")
	}

	out := buf.String()
	for _, want := range []string{"endpoint=parse", "transport=mcp", "request_id=req-1", "level=WARN", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestTimeout(t *testing.T) {
	ep := Timeout(10 * time.Millisecond)(func(ctx context.Context, _ any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if _, err := ep(context.Background(), nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if GetTransport(ctx) != "http" {
		t.Error("default transport should be http")
	}
	ctx = WithSession(ctx, "tab-1")
	if GetSession(ctx) != "tab-1" {
		t.Errorf("session = %q", GetSession(ctx))
	}
}
