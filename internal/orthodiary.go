package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/crypto"
	"github.com/dgellow/ortho-diary/internal/idp"
	"github.com/dgellow/ortho-diary/internal/journal"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/server"
	"github.com/dgellow/ortho-diary/internal/storage"
	"github.com/dgellow/ortho-diary/internal/verification"
)

const (
	purgeInterval   = time.Hour
	shutdownTimeout = 30 * time.Second

	defaultRequestsPerSecond = 1
	defaultBurst             = 10
)

// OrthoDiary is the complete server application
type OrthoDiary struct {
	config     config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
	storage    storage.Storage
	purge      *storage.PurgeManager // nil unless storage.deletedRetention is set

	// cancels background work started while building, such as limiter cleanup
	cancel context.CancelFunc
}

// Option customizes how the application is built.
type Option func(*options)

type options struct {
	providerOpts []idp.Option
	authOpts     []server.AuthenticatorOption
	storage      storage.Storage
}

// WithProviderOptions passes options to every identity provider.
func WithProviderOptions(opts ...idp.Option) Option {
	return func(o *options) { o.providerOpts = append(o.providerOpts, opts...) }
}

// WithAuthenticatorOptions passes options to the bearer authenticator.
func WithAuthenticatorOptions(opts ...server.AuthenticatorOption) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// WithStorage uses store instead of the configured backend.
func WithStorage(store storage.Storage) Option {
	return func(o *options) { o.storage = store }
}

// NewOrthoDiary creates the application with all dependencies built
func NewOrthoDiary(ctx context.Context, cfg config.Config, opts ...Option) (*OrthoDiary, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log.LogInfoWithFields("orthodiary", "Building application", map[string]any{
		"addr":      cfg.Server.Addr,
		"storage":   string(cfg.Storage.Kind),
		"providers": cfg.UsableProviders(),
	})
	for _, warning := range cfg.Warnings() {
		log.LogWarnWithFields("config", warning, nil)
	}

	store := o.storage
	if store == nil {
		var err error
		store, err = setupStorage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup storage: %w", err)
		}
	}

	signer, err := setupSessionSigner(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to setup session tokens: %w", err)
	}

	trusted, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	handler := buildHTTPHandler(bgCtx, cfg, store, signer, trusted, o)

	app := &OrthoDiary{
		config:     cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Server.Addr),
		storage:    store,
		cancel:     cancel,
	}
	if cfg.Storage.DeletedRetention > 0 {
		app.purge = storage.NewPurgeManager(store, purgeInterval, cfg.Storage.DeletedRetention)
	}
	return app, nil
}

// Handler returns the root HTTP handler.
func (a *OrthoDiary) Handler() http.Handler {
	return a.handler
}

// Run serves until ctx is cancelled, a termination signal arrives, or the
// server fails, then shuts everything down.
func (a *OrthoDiary) Run(ctx context.Context) error {
	log.LogInfoWithFields("orthodiary", "Starting application", map[string]any{
		"addr": a.config.Server.Addr,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.purge != nil {
		a.purge.Start(gctx)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.LogInfoWithFields("orthodiary", "Starting graceful shutdown", map[string]any{
			"reason":  context.Cause(gctx).Error(),
			"timeout": shutdownTimeout.String(),
		})
		return a.shutdown()
	})

	err := g.Wait()
	log.LogInfoWithFields("orthodiary", "Application shutdown complete", nil)
	return err
}

func (a *OrthoDiary) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("orthodiary", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		firstErr = err
	}

	if a.purge != nil {
		a.purge.Stop()
	}
	a.cancel()

	if err := a.storage.Close(); err != nil {
		log.LogErrorWithFields("orthodiary", "Storage close error", map[string]any{
			"error": err.Error(),
		})
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setupStorage creates the configured document store
func setupStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	if cfg.Storage.Kind == config.StorageFirestore {
		log.LogInfoWithFields("storage", "Using Firestore storage", map[string]any{
			"project":  cfg.Storage.GCPProject,
			"database": cfg.Storage.FirestoreDatabase,
		})
		return storage.NewFirestoreStorage(ctx, cfg.Storage.GCPProject, cfg.Storage.FirestoreDatabase)
	}

	log.LogInfoWithFields("storage", "Using in-memory storage", map[string]any{})
	return storage.NewMemoryStorage(), nil
}

// setupSessionSigner returns nil when no signing key is configured, which
// disables session tokens.
func setupSessionSigner(cfg config.Config) (*crypto.TokenSigner, error) {
	if cfg.Server.SessionSigningKey == "" {
		log.LogWarnWithFields("orthodiary", "No session signing key; Kakao and Naver users cannot call the journal API", nil)
		return nil, nil
	}
	key, err := crypto.DeriveKey([]byte(cfg.Server.SessionSigningKey), "session")
	if err != nil {
		return nil, err
	}
	signer := crypto.NewTokenSigner(key, cfg.Server.SessionTTL)
	return &signer, nil
}

func buildHTTPHandler(
	ctx context.Context,
	cfg config.Config,
	store storage.Storage,
	signer *crypto.TokenSigner,
	trusted []netip.Prefix,
	o options,
) http.Handler {
	mux := http.NewServeMux()

	providers := idp.NewProviders(cfg.Providers, o.providerOpts...)

	// Build common middleware
	corsMiddleware := server.NewCORSMiddleware(cfg.Server.AllowedOrigins)
	authLogger := server.NewLoggerMiddleware("auth")
	apiLogger := server.NewLoggerMiddleware("api")
	adminLogger := server.NewLoggerMiddleware("admin")
	recoverMiddleware := server.NewRecoverMiddleware("http")

	rps, burst := float64(defaultRequestsPerSecond), defaultBurst
	if rl := cfg.Server.RateLimit; rl != nil {
		rps, burst = rl.RequestsPerSecond, rl.Burst
	}
	limiter := server.NewRateLimiter(ctx, rps, burst, trusted...)

	var googleClientID string
	if g := cfg.Providers.Google; g != nil {
		googleClientID = g.ClientID
	}
	bearer := server.NewBearerAuthMiddleware(server.NewAuthenticator(signer, googleClientID, o.authOpts...))

	// Health
	var probes []server.Probe
	if cfg.Storage.Kind == config.StorageFirestore {
		probes = append(probes, server.Probe{Name: "firestore", Check: store.Ping})
	}
	mux.Handle("GET /health", server.NewHealthHandler(cfg.UsableProviders(), probes...))

	// Exchange proxy
	authMiddleware := []server.MiddlewareFunc{
		server.NewRateLimitMiddleware(limiter),
		corsMiddleware,
		authLogger,
		recoverMiddleware,
	}
	authHandlers := server.NewAuthHandlers(providers, cfg.Server.DefaultOrigin, signer)
	for _, t := range []config.ProviderType{config.ProviderKakao, config.ProviderNaver} {
		mux.Handle("POST /auth/"+string(t), server.ChainMiddleware(authHandlers.ExchangeHandler(t), authMiddleware...))
	}

	// Journal API
	apiMiddleware := []server.MiddlewareFunc{
		bearer,
		corsMiddleware,
		apiLogger,
		recoverMiddleware,
	}
	api := func(h http.HandlerFunc) http.Handler {
		return server.ChainMiddleware(h, apiMiddleware...)
	}

	journalHandlers := server.NewJournalHandlers(journal.NewService(store))
	verificationService := verification.NewService(store)
	profileHandlers := server.NewProfileHandlers(verificationService)

	mux.Handle("GET /api/photos", api(journalHandlers.ListPhotosHandler))
	mux.Handle("POST /api/photos", api(journalHandlers.CreatePhotoHandler))
	mux.Handle("PATCH /api/photos/{id}", api(journalHandlers.UpdatePhotoHandler))
	mux.Handle("DELETE /api/photos/{id}", api(journalHandlers.DeletePhotoHandler))
	mux.Handle("GET /api/profile", api(profileHandlers.ProfileHandler))
	mux.Handle("POST /api/verification", api(profileHandlers.SubmitVerificationHandler))

	// Admin
	if cfg.Admin != nil && cfg.Admin.Enabled {
		adminMiddleware := []server.MiddlewareFunc{
			server.NewAdminMiddleware(cfg.Admin),
			bearer,
			corsMiddleware,
			adminLogger,
			recoverMiddleware,
		}
		admin := func(h http.HandlerFunc) http.Handler {
			return server.ChainMiddleware(h, adminMiddleware...)
		}

		adminHandlers := server.NewAdminHandlers(verificationService)
		mux.Handle("GET /admin/verifications", admin(adminHandlers.ListVerificationsHandler))
		mux.Handle("POST /admin/verifications/{id}/approve", admin(adminHandlers.ApproveVerificationHandler))
		mux.Handle("POST /admin/verifications/{id}/reject", admin(adminHandlers.RejectVerificationHandler))
		mux.Handle("DELETE /admin/verifications/{id}", admin(adminHandlers.DeleteVerificationHandler))
		mux.Handle("GET /admin/logging", admin(adminHandlers.LoggingHandler))
		mux.Handle("POST /admin/logging", admin(adminHandlers.LoggingHandler))
	}

	log.LogInfoWithFields("server", "HTTP routes initialized", map[string]any{
		"sessionTokens": signer != nil,
		"googleIdToken": googleClientID != "",
		"admin":         cfg.Admin != nil && cfg.Admin.Enabled,
	})

	// Preflight requests never reach the mux
	preflight := server.ChainMiddleware(http.NotFoundHandler(), corsMiddleware)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			preflight.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}
