package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/session"
)

var (
	// ErrDuplicateCallback is returned when a callback fires a second time.
	// Callers ignore it.
	ErrDuplicateCallback = errors.New("callback already handled")
	// ErrMissingCode is returned when the redirect carries no code.
	ErrMissingCode = errors.New("authorization code missing")
	// ErrInvalidState is returned when the state does not match the one
	// issued at login start.
	ErrInvalidState = errors.New("invalid state parameter")
)

// ProviderError is an error reported by the provider on the redirect.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "provider returned error: " + e.Code
	}
	return fmt.Sprintf("provider returned error: %s: %s", e.Code, e.Description)
}

// Exchanger trades a code for a proxy identity.
type Exchanger interface {
	Exchange(ctx context.Context, provider, code, state string) (*session.ProxyIdentity, error)
}

// SessionSink adopts a logged-in identity.
type SessionSink interface {
	Login(id session.Identity) error
}

// StateValidator checks the state echoed back by the provider.
type StateValidator interface {
	Validate(state string) bool
}

// Callback handles one provider redirect. The exchange fires at most once
// per Callback because providers reject a reused code.
type Callback struct {
	provider  string
	exchanger Exchanger
	sessions  SessionSink
	state     StateValidator

	once sync.Once
}

// NewCallback creates a one-shot callback. state may be nil for providers
// that do not echo a state.
func NewCallback(provider string, exchanger Exchanger, sessions SessionSink, state StateValidator) *Callback {
	return &Callback{
		provider:  provider,
		exchanger: exchanger,
		sessions:  sessions,
		state:     state,
	}
}

// Handle processes the redirect query. Every call after the first returns
// ErrDuplicateCallback without side effects.
func (c *Callback) Handle(ctx context.Context, query url.Values) (*session.ProxyIdentity, error) {
	fired := false
	var identity *session.ProxyIdentity
	var err error

	c.once.Do(func() {
		fired = true
		identity, err = c.run(ctx, query)
	})
	if !fired {
		log.LogDebugWithFields("callback", "Ignoring duplicate callback", map[string]any{
			"provider": c.provider,
		})
		return nil, ErrDuplicateCallback
	}
	return identity, err
}

func (c *Callback) run(ctx context.Context, query url.Values) (*session.ProxyIdentity, error) {
	if code := query.Get("error"); code != "" {
		return nil, &ProviderError{Code: code, Description: query.Get("error_description")}
	}

	code := query.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	state := query.Get("state")
	if c.state != nil && !c.state.Validate(state) {
		return nil, ErrInvalidState
	}

	identity, err := c.exchanger.Exchange(ctx, c.provider, code, state)
	if err != nil {
		log.LogErrorWithFields("callback", "Code exchange failed", map[string]any{
			"provider": c.provider,
			"error":    err.Error(),
		})
		return nil, err
	}
	if err := c.sessions.Login(*identity); err != nil {
		return nil, err
	}
	return identity, nil
}
