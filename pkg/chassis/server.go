// Package chassis runs the atlas HTTP API and, when TLS is on, a second
// listener on the same port:
//
//   - TCP: HTTP/1.1 (plain) or HTTP/1.1 + HTTP/2 (TLS)
//   - UDP: QUIC with ALPN demux, "h3" for HTTP/3 and mcpquic.ALPN for MCP
//
// TLS responses advertise HTTP/3 with Alt-Svc.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/accent-atlas/pkg/mcpquic"
)

// Config holds configuration for the chassis server.
type Config struct {
	Addr         string
	TLS          bool        // false: plain HTTP on TCP only
	TLSConfig    *tls.Config // nil: load CertFile/KeyFile or self-sign
	CertFile     string
	KeyFile      string
	Handler      http.Handler
	MCPServer    *server.MCPServer // nil disables MCP over QUIC
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Server is the unified chassis.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	tlsCfg     *tls.Config
	mcpHandler *mcpquic.Handler

	mu        sync.Mutex
	tcpServer *http.Server
	h3Server  *http3.Server
	quicLn    *quic.Listener
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: nil handler")
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	if !cfg.TLS {
		return s, nil
	}

	s.tlsCfg = cfg.TLSConfig
	if s.tlsCfg == nil {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			s.tlsCfg, err = LoadTLSConfig(cfg.CertFile, cfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("load TLS cert: %w", err)
			}
			cfg.Logger.Info("tls: certificate loaded", "cert", cfg.CertFile)
		} else {
			s.tlsCfg, err = DevelopmentTLSConfig()
			if err != nil {
				return nil, fmt.Errorf("generate dev TLS: %w", err)
			}
			cfg.Logger.Warn("tls: using a self-signed development certificate")
		}
	}
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

// apiHeaders adds the response headers every JSON API answer carries.
func apiHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

func altSvc(addr string, next http.Handler) http.Handler {
	_, port, _ := net.SplitHostPort(addr)
	if port == "" {
		port = "443"
	}
	value := fmt.Sprintf(`h3=":%s"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	handler := apiHeaders(s.cfg.Handler)
	if s.tlsCfg != nil {
		handler = altSvc(s.cfg.Addr, handler)
	}
	s.tcpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 2)
	if s.tlsCfg == nil {
		s.mu.Unlock()
		go func() {
			s.logger.Info("listening", "addr", s.cfg.Addr, "proto", "HTTP/1.1")
			if err := s.tcpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("TCP: %w", err)
			}
		}()
		return wait(ctx, errCh)
	}

	tcpTLS := s.tlsCfg.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	s.tcpServer.TLSConfig = tcpTLS

	ln, err := quic.ListenAddr(s.cfg.Addr, s.tlsCfg, mcpquic.QUICConfig())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("QUIC listen: %w", err)
	}
	s.quicLn = ln
	s.h3Server = &http3.Server{Handler: handler}
	s.mu.Unlock()

	go func() {
		tcpLn, err := tls.Listen("tcp", s.cfg.Addr, tcpTLS)
		if err != nil {
			errCh <- fmt.Errorf("TCP listen: %w", err)
			return
		}
		s.logger.Info("listening", "addr", s.cfg.Addr, "proto", "HTTP/1.1+HTTP/2")
		if err := s.tcpServer.Serve(tcpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()

	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "proto", "QUIC", "mcp", s.mcpHandler != nil)
		for {
			conn, err := ln.Accept(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errCh <- fmt.Errorf("QUIC accept: %w", err)
				}
				return
			}
			s.dispatch(ctx, conn)
		}
	}()

	return wait(ctx, errCh)
}

// dispatch routes a QUIC connection by its negotiated ALPN.
func (s *Server) dispatch(ctx context.Context, conn *quic.Conn) {
	switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
	case "h3":
		go func() {
			if err := s.h3Server.ServeQUICConn(conn); err != nil {
				s.logger.Debug("http3 conn done", "remote", conn.RemoteAddr(), "error", err)
			}
		}()
	case mcpquic.ALPN:
		if s.mcpHandler == nil {
			conn.CloseWithError(0x10, "MCP not enabled")
			return
		}
		go s.mcpHandler.ServeConn(ctx, conn)
	default:
		s.logger.Warn("unsupported ALPN", "alpn", alpn, "remote", conn.RemoteAddr())
		conn.CloseWithError(0x11, "unsupported ALPN: "+alpn)
	}
}

func wait(ctx context.Context, errCh <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the listeners down, waiting for in-flight HTTP requests until
// ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.tcpServer != nil {
		errs = append(errs, s.tcpServer.Shutdown(ctx))
	}
	if s.h3Server != nil {
		errs = append(errs, s.h3Server.Close())
	}
	if s.quicLn != nil {
		errs = append(errs, s.quicLn.Close())
	}
	s.logger.Info("server stopped")
	return errors.Join(errs...)
}
