package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// newHTTPServer builds a configured *http.Server for the given address and handler.
// WebSocket writes reset their own deadline after the upgrade.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// normalizeAddr accepts "8080", ":8080" or "host:8080". Empty means ":8080".
func normalizeAddr(port string) string {
	port = strings.TrimSpace(port)
	switch {
	case port == "":
		return ":8080"
	case strings.Contains(port, ":"):
		return port
	default:
		return ":" + port
	}
}

// Run listens on port and serves handler until Shutdown. A clean shutdown
// returns nil.
func (s *Server) Run(port string, handler http.Handler) error {
	ln, err := net.Listen("tcp", normalizeAddr(port))
	if err != nil {
		return err
	}
	return s.Serve(ln, handler)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ln net.Listener, handler http.Handler) error {
	s.mu.Lock()
	s.httpServer = newHTTPServer(ln.Addr().String(), handler)
	s.listener = ln
	srv := s.httpServer
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, or "" before Run.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
