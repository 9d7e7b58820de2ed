// Package loopback receives provider redirects on a local port so that
// command-line tools can complete a browser login.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dgellow/ortho-diary/internal/log"
)

// DefaultAddr matches the web client's development origin, which is the
// redirect origin registered with the providers.
const DefaultAddr = "127.0.0.1:5173"

// CallbackTimeout is how long Wait blocks by default.
const CallbackTimeout = 5 * time.Minute

// Handler processes one provider redirect.
type Handler func(ctx context.Context, provider string, query url.Values) error

// Server is a temporary local HTTP server for /auth/{provider}/callback.
// Only the first redirect's outcome is reported by Wait.
type Server struct {
	addr   string
	handle Handler

	server   *http.Server
	listener net.Listener
	origin   string
	ctx      context.Context

	resultCh chan error
	stopOnce sync.Once
}

// New creates a server for addr. An empty addr means DefaultAddr.
func New(addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		addr:     addr,
		resultCh: make(chan error, 1),
	}
}

// Listen binds the port and returns the origin the provider should
// redirect back to. Nothing is served until Serve.
func (s *Server) Listen() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.origin = fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	return s.origin, nil
}

// Serve answers redirects with handle until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, handle Handler) {
	s.ctx = ctx
	s.handle = handle

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/{provider}/callback", s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.report(err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	log.LogDebugWithFields("loopback", "Callback server listening", map[string]any{
		"origin": s.origin,
	})
}

// Origin returns the origin of a started server.
func (s *Server) Origin() string {
	return s.origin
}

// Wait blocks until the first redirect was handled and returns its error.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case err := <-s.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	// The request context ends when the browser goes away, the login
	// must not.
	err := s.handle(s.ctx, r.PathValue("provider"), r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "로그인에 실패했습니다: %v\n", err)
	} else {
		fmt.Fprintln(w, "로그인되었습니다. 이 창을 닫아도 됩니다.")
	}
	s.report(err)
}

func (s *Server) report(err error) {
	select {
	case s.resultCh <- err:
	default:
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.server == nil {
			if s.listener != nil {
				_ = s.listener.Close()
			}
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	})
}
