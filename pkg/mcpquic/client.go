package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// Client is an MCP client speaking to an atlas server over QUIC.
type Client struct {
	addr   string
	tlsCfg *tls.Config
	conn   *quic.Conn
	stream *quic.Stream
	mcp    *client.Client
}

// NewClient prepares a client for addr. A nil tlsCfg accepts self-signed
// development certificates.
func NewClient(addr string, tlsCfg *tls.Config) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}
	return &Client{addr: addr, tlsCfg: tlsCfg}
}

// Connect dials, opens the session stream and runs the MCP handshake.
func (c *Client) Connect(ctx context.Context, name, version string) error {
	conn, err := quic.DialAddr(ctx, c.addr, c.tlsCfg, QUICConfig())
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPN {
		conn.CloseWithError(connErrorALPN, "bad ALPN")
		return fmt.Errorf("%w (got %q)", ErrALPN, alpn)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(connErrorProtocol, "open stream")
		return fmt.Errorf("open stream: %w", err)
	}
	if err := writePreamble(stream); err != nil {
		stream.Close()
		conn.CloseWithError(connErrorProtocol, "preamble")
		return err
	}
	c.conn, c.stream = conn, stream

	c.mcp = client.NewClient(transport.NewIO(stream, stream, io.NopCloser(strings.NewReader(""))))
	if err := c.mcp.Start(ctx); err != nil {
		c.Close()
		return fmt.Errorf("mcp start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: name, Version: version}
	hctx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()
	if _, err := c.mcp.Initialize(hctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("mcp initialize: %w", err)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	if c.mcp == nil {
		return nil, ErrNotConnected
	}
	return c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.mcp == nil {
		return nil, ErrNotConnected
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return c.mcp.CallTool(ctx, req)
}

func (c *Client) Close() error {
	if c.mcp != nil {
		c.mcp.Close()
		c.mcp = nil
	}
	if c.stream != nil {
		c.stream.Close()
	}
	if c.conn != nil {
		return c.conn.CloseWithError(connErrorNone, "client closing")
	}
	return nil
}
