package chassis

import (
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/hazyhaar/accent-atlas/pkg/mcpquic"
)

func TestSelfSignedCert(t *testing.T) {
	cert, err := SelfSignedCert(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("localhost: %v", err)
	}
	if err := leaf.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("127.0.0.1: %v", err)
	}
	if d := leaf.NotAfter.Sub(leaf.NotBefore); d < time.Hour || d > time.Hour+2*time.Minute {
		t.Errorf("validity = %v", d)
	}
}

func TestDevelopmentTLSConfigALPN(t *testing.T) {
	cfg, err := DevelopmentTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(cfg.NextProtos, "h3") || !slices.Contains(cfg.NextProtos, mcpquic.ALPN) {
		t.Errorf("NextProtos = %v", cfg.NextProtos)
	}
	cfg.NextProtos[0] = "x"
	if nextProtos[0] != "h3" {
		t.Error("config shares the package ALPN slice")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Addr: ":0"}); err == nil {
		t.Error("nil handler accepted")
	}
	s, err := New(Config{Addr: ":0", Handler: http.NotFoundHandler()})
	if err != nil {
		t.Fatal(err)
	}
	if s.tlsCfg != nil || s.mcpHandler != nil {
		t.Error("plain server has TLS state")
	}
	s, err = New(Config{Addr: ":0", TLS: true, Handler: http.NotFoundHandler()})
	if err != nil {
		t.Fatal(err)
	}
	if s.tlsCfg == nil {
		t.Error("TLS server without config")
	}
	if _, err := New(Config{TLS: true, CertFile: "missing.pem", KeyFile: "missing.key", Handler: http.NotFoundHandler()}); err == nil {
		t.Error("missing cert files accepted")
	}
}

func TestHeaders(t *testing.T) {
	h := altSvc(":8430", apiHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/v1/health", nil))

	if got := w.Header().Get("Alt-Svc"); got != `h3=":8430"; ma=86400` {
		t.Errorf("Alt-Svc = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}
