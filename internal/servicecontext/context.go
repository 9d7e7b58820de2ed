// Package servicecontext carries the authenticated API caller through a
// request context.
package servicecontext

import (
	"context"
)

type contextKey string

const (
	callerKey    contextKey = "auth.caller"
	requestIDKey contextKey = "request.id"
)

// Source records how a caller authenticated.
type Source string

const (
	// SourceSessionToken is a token minted by the exchange proxy.
	SourceSessionToken Source = "session_token"
	// SourceGoogleIDToken is a Google ID token.
	SourceGoogleIDToken Source = "google_id_token"
)

// Caller is the authenticated user of an API request
type Caller struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Source      Source
}

// WithCaller adds the caller to the context
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// GetCaller retrieves the caller from context
func GetCaller(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

// GetEmail retrieves the caller email from context
func GetEmail(ctx context.Context) (string, bool) {
	caller, ok := GetCaller(ctx)
	if !ok || caller.Email == "" {
		return "", false
	}
	return caller.Email, true
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
