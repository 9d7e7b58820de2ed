package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgellow/ortho-diary/internal/config"
	jsonwriter "github.com/dgellow/ortho-diary/internal/json"
	"github.com/dgellow/ortho-diary/internal/log"
)

// HTTPServer manages the HTTP server lifecycle
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates a new HTTP server with the given handler and address
func NewHTTPServer(handler http.Handler, addr string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	log.LogInfoWithFields("http", "HTTP server starting", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	log.LogInfoWithFields("http", "HTTP server stopping", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.LogInfoWithFields("http", "HTTP server stopped", map[string]any{
		"addr": h.server.Addr,
	})
	return nil
}

// healthProbeTimeout bounds each backend probe.
const healthProbeTimeout = 5 * time.Second

// Probe checks one backend dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	probes    []Probe
	providers map[config.ProviderType]bool
	now       func() time.Time
}

// NewHealthHandler creates a health handler reporting the usable login
// methods and the result of each probe. Without a "firestore" probe the
// document store is reported disconnected.
func NewHealthHandler(providers map[config.ProviderType]bool, probes ...Probe) *HealthHandler {
	return &HealthHandler{
		probes:    probes,
		providers: providers,
		now:       time.Now,
	}
}

// ServeHTTP implements http.Handler for health checks
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	results := make([]string, len(h.probes))

	var g errgroup.Group
	for i, p := range h.probes {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
			defer cancel()

			if err := p.Check(ctx); err != nil {
				log.LogWarnWithFields("health", "Probe failed", map[string]any{
					"probe": p.Name,
					"error": err.Error(),
				})
				results[i] = "disconnected"
				return nil
			}
			results[i] = "connected"
			return nil
		})
	}
	_ = g.Wait()

	providers := map[config.ProviderType]bool{
		config.ProviderKakao:  h.providers[config.ProviderKakao],
		config.ProviderNaver:  h.providers[config.ProviderNaver],
		config.ProviderGoogle: h.providers[config.ProviderGoogle],
	}

	response := map[string]any{
		"status":    "OK",
		"message":   "서버가 정상 작동 중입니다.",
		"firestore": "disconnected",
		"providers": providers,
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	}
	for i, p := range h.probes {
		response[p.Name] = results[i]
	}

	_ = jsonwriter.Write(w, response)
}
