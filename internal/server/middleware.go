package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgellow/ortho-diary/internal/adminauth"
	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/crypto"
	jsonwriter "github.com/dgellow/ortho-diary/internal/json"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/servicecontext"
)

// MiddlewareFunc is a function that wraps an http.Handler
type MiddlewareFunc func(http.Handler) http.Handler

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

// NewCORSMiddleware adds CORS headers to responses
func NewCORSMiddleware(allowedOrigins []string) MiddlewareFunc {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && allowedMap[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			} else if len(allowedOrigins) == 0 {
				// If no allowed origins configured, allow all (development mode)
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriterDelegator wraps http.ResponseWriter to capture status and bytes written
type responseWriterDelegator struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

var _ http.ResponseWriter = (*responseWriterDelegator)(nil)

// NewLoggerMiddleware logs every request and tags it with a request ID.
// An incoming X-Request-ID is kept.
func NewLoggerMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			wrapped.Header().Set("X-Request-ID", requestID)
			r = r.WithContext(servicecontext.WithRequestID(r.Context(), requestID))

			next.ServeHTTP(wrapped, r)

			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes":       wrapped.written,
				"remote_addr": r.RemoteAddr,
				"request_id":  requestID,
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}

			log.LogInfoWithFields(prefix, "request", fields)
		})
	}
}

// NewRecoverMiddleware recovers from panics
func NewRecoverMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.LogErrorWithFields(prefix, "Recovered from panic", map[string]any{
						"panic":      err,
						"path":       r.URL.Path,
						"request_id": servicecontext.GetRequestID(r.Context()),
					})
					jsonwriter.WriteInternalServerError(w, "Internal Server Error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewRateLimitMiddleware rejects clients over their per-IP budget with 429.
func NewRateLimitMiddleware(limiter *RateLimiter) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := limiter.ClientIP(r)
			if !limiter.Allow(ip) {
				log.LogWarnWithFields("ratelimit", "Rate limit exceeded", map[string]any{
					"ip":   ip,
					"path": r.URL.Path,
				})
				w.Header().Set("Retry-After", limiter.RetryAfter())
				jsonwriter.WriteTooManyRequests(w, "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewBearerAuthMiddleware authenticates the Authorization bearer token and
// puts the caller in the request context.
func NewBearerAuthMiddleware(authenticator *Authenticator) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				log.LogTraceWithFields("auth", "Missing bearer token", map[string]any{
					"path": r.URL.Path,
				})
				jsonwriter.WriteUnauthorized(w, "Unauthorized")
				return
			}

			caller, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				log.LogDebugWithFields("auth", "Bearer token rejected", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				message := "Unauthorized"
				if errors.Is(err, crypto.ErrTokenExpired) {
					message = "Session expired"
				}
				jsonwriter.WriteUnauthorized(w, message)
				return
			}

			log.LogTraceWithFields("auth", "Caller authenticated", map[string]any{
				"uid":    caller.UID,
				"source": string(caller.Source),
			})
			next.ServeHTTP(w, r.WithContext(servicecontext.WithCaller(r.Context(), caller)))
		})
	}
}

// NewAdminMiddleware allows only configured admins. It must run after the
// bearer middleware.
func NewAdminMiddleware(adminConfig *config.AdminConfig) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := servicecontext.GetEmail(r.Context())
			if !ok {
				jsonwriter.WriteUnauthorized(w, "Unauthorized")
				return
			}
			if !adminauth.IsAdmin(email, adminConfig) {
				log.LogWarnWithFields("admin", "Non-admin attempted admin access", map[string]any{
					"email": email,
					"path":  r.URL.Path,
				})
				jsonwriter.WriteForbidden(w, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
