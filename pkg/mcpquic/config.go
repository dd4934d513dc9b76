// Package mcpquic carries MCP JSON-RPC over a single bidirectional QUIC
// stream. The server side is a Handler the chassis hands connections to after
// ALPN demux; the client side is used by the atlas "ping" command.
package mcpquic

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	ALPN                    = "atlas-mcp-v1"
	Preamble                = "ATL1" // first bytes of every MCP stream
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultIdleTimeout      = 5 * time.Minute
	DefaultKeepAlive        = 30 * time.Second
)

// QUICConfig returns the transport settings shared by listener and client.
// Heatmap grids for fine cells are large, hence the generous windows.
func QUICConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout:       DefaultHandshakeTimeout,
		MaxStreamReceiveWindow:     16 << 20,
		MaxConnectionReceiveWindow: 64 << 20,
		MaxIdleTimeout:             DefaultIdleTimeout,
		KeepAlivePeriod:            DefaultKeepAlive,
	}
}

// ClientTLSConfig negotiates the MCP ALPN. insecure accepts self-signed
// development certificates.
func ClientTLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: insecure,
	}
}

func readPreamble(r io.Reader) error {
	buf := make([]byte, len(Preamble))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read preamble: %w", err)
	}
	if !bytes.Equal(buf, []byte(Preamble)) {
		return fmt.Errorf("%w: got %q", ErrBadPreamble, buf)
	}
	return nil
}

func writePreamble(w io.Writer) error {
	if _, err := io.WriteString(w, Preamble); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}
	return nil
}
