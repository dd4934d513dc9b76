package mcpquic

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestPreamble(t *testing.T) {
	var buf bytes.Buffer
	if err := writePreamble(&buf); err != nil {
		t.Fatal(err)
	}
	buf.WriteString(`{"jsonrpc":"2.0"}`)
	if err := readPreamble(&buf); err != nil {
		t.Fatalf("readPreamble: %v", err)
	}
	if rest := buf.String(); rest != `{"jsonrpc":"2.0"}` {
		t.Errorf("rest = %q", rest)
	}
}

func TestPreambleRejected(t *testing.T) {
	if err := readPreamble(strings.NewReader("MCP1{}")); !errors.Is(err, ErrBadPreamble) {
		t.Errorf("err = %v, want ErrBadPreamble", err)
	}
	if err := readPreamble(strings.NewReader("AT")); err == nil {
		t.Error("short preamble accepted")
	}
}

func TestSessionSendIsLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	s := newSession("quic-test", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.send(map[string]int{"n": 1})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("lines = %d, want 10", len(lines))
	}
	for _, l := range lines {
		if l != `{"n":1}` {
			t.Errorf("line = %q", l)
		}
	}
}

func TestSessionState(t *testing.T) {
	s := newSession("quic-1", &bytes.Buffer{})
	if s.SessionID() != "quic-1" || s.Initialized() {
		t.Fatalf("session = %+v", s)
	}
	s.Initialize()
	if !s.Initialized() {
		t.Error("Initialize had no effect")
	}
	var _ chan<- mcp.JSONRPCNotification = s.NotificationChannel()
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient("127.0.0.1:1", nil)
	if _, err := c.ListTools(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ListTools err = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on idle client: %v", err)
	}
}
