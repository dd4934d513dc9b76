package mcpquic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/accent-atlas/pkg/kit"
)

// MaxMessageSize bounds one JSON-RPC line. GeoJSON arguments can be large.
const MaxMessageSize = 64 << 20

// Handler serves MCP sessions on QUIC connections it does not accept itself.
type Handler struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

func NewHandler(mcpSrv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcpServer: mcpSrv, logger: logger}
}

// ServeConn runs one MCP session on the first stream of conn until the peer
// closes it. The session id doubles as the kit session, so heatmap runs of
// one connection supersede each other but not those of other clients.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		h.logger.Warn("mcp quic: accept stream", "remote", remote, "error", err)
		conn.CloseWithError(connErrorProtocol, "no stream")
		return
	}
	if err := readPreamble(stream); err != nil {
		h.logger.Warn("mcp quic: rejected stream", "remote", remote, "error", err)
		stream.CancelRead(streamErrorProtocol)
		stream.CancelWrite(streamErrorProtocol)
		conn.CloseWithError(connErrorProtocol, "bad preamble")
		return
	}

	sess := newSession("quic-"+uuid.NewString()[:8], stream)
	if err := h.mcpServer.RegisterSession(ctx, sess); err != nil {
		h.logger.Error("mcp quic: register session", "session", sess.id, "error", err)
		stream.Close()
		return
	}
	defer h.mcpServer.UnregisterSession(ctx, sess.id)
	h.logger.Info("mcp quic: session started", "session", sess.id, "remote", remote)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = kit.WithTransport(ctx, "mcp_quic")
	ctx = kit.WithSession(ctx, sess.id)
	ctx = h.mcpServer.WithContext(ctx, sess)

	go sess.forwardNotifications(ctx)

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64<<10), MaxMessageSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := h.mcpServer.HandleMessage(ctx, json.RawMessage(line))
		if resp == nil {
			continue
		}
		if err := sess.send(resp); err != nil {
			h.logger.Warn("mcp quic: write", "session", sess.id, "error", err)
			break
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF && ctx.Err() == nil {
		h.logger.Warn("mcp quic: read", "session", sess.id, "error", err)
	}
	h.logger.Info("mcp quic: session ended", "session", sess.id)
}

// session implements server.ClientSession. Responses and notifications share
// the stream, so writes are serialised.
type session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool

	mu sync.Mutex
	w  io.Writer
}

func newSession(id string, w io.Writer) *session {
	return &session{id: id, notifications: make(chan mcp.JSONRPCNotification, 100), w: w}
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

func (s *session) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}

func (s *session) forwardNotifications(ctx context.Context) {
	for {
		select {
		case n := <-s.notifications:
			_ = s.send(n)
		case <-ctx.Done():
			return
		}
	}
}
