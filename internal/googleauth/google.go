// Package googleauth is the managed sign-in source for Google accounts.
package googleauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dgellow/ortho-diary/internal/idp"
	"github.com/dgellow/ortho-diary/internal/ioutil"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/session"
)

const defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Ensure Auth implements session.ManagedAuth
var _ session.ManagedAuth = (*Auth)(nil)

// Option configures Auth.
type Option func(*Auth)

// WithRevokeURL overrides the token revocation endpoint.
func WithRevokeURL(u string) Option {
	return func(a *Auth) { a.revokeURL = u }
}

// WithHTTPClient sets the client used for revocation.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Auth) { a.httpClient = c }
}

// Auth signs users in with a Google authorization code and reports
// sign-in state changes to listeners.
type Auth struct {
	provider    idp.Provider
	redirectURI string
	revokeURL   string
	httpClient  *http.Client

	mu        sync.Mutex
	user      *session.ManagedIdentity
	token     *oauth2.Token
	listeners map[int]func(*session.ManagedIdentity)
	nextID    int
}

// New creates a signed-out Auth using provider for the code exchange.
func New(provider idp.Provider, redirectURI string, opts ...Option) *Auth {
	a := &Auth{
		provider:    provider,
		redirectURI: redirectURI,
		revokeURL:   defaultRevokeURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		listeners:   make(map[int]func(*session.ManagedIdentity)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthURL is where the user is sent to sign in.
func (a *Auth) AuthURL(state string) string {
	return a.provider.AuthURL(state, a.redirectURI)
}

// SignInWithCode exchanges code and signs the user in.
func (a *Auth) SignInWithCode(ctx context.Context, code string) (*session.ManagedIdentity, error) {
	token, err := a.provider.ExchangeCode(ctx, code, "", a.redirectURI)
	if err != nil {
		return nil, fmt.Errorf("exchanging google code: %w", err)
	}
	user, err := a.provider.UserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetching google profile: %w", err)
	}

	identity := &session.ManagedIdentity{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		IDToken:     idp.IDToken(token),
	}
	if user.PhotoURL != nil {
		identity.PhotoURL = *user.PhotoURL
	}

	a.mu.Lock()
	a.user = identity
	a.token = token
	a.mu.Unlock()

	log.LogInfoWithFields("googleauth", "Signed in", map[string]any{
		"uid": identity.UID,
	})
	a.notify(identity)
	return identity, nil
}

// OnAuthStateChanged registers fn and immediately reports the current
// state to it.
func (a *Auth) OnAuthStateChanged(fn func(*session.ManagedIdentity)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	current := copyIdentity(a.user)
	a.mu.Unlock()

	fn(current)

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

// CurrentUser returns the signed-in user or nil.
func (a *Auth) CurrentUser() *session.ManagedIdentity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyIdentity(a.user)
}

// SignOut revokes the token and signs the user out. The local state is
// cleared even when revocation fails.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	token := a.token
	a.user = nil
	a.token = nil
	a.mu.Unlock()

	a.notify(nil)

	if token == nil {
		return nil
	}
	return a.revoke(ctx, token)
}

func (a *Auth) revoke(ctx context.Context, token *oauth2.Token) error {
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	form := url.Values{"token": {value}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoking token: status %d: %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, 512))
	}
	return nil
}

func (a *Auth) notify(user *session.ManagedIdentity) {
	a.mu.Lock()
	listeners := make([]func(*session.ManagedIdentity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(copyIdentity(user))
	}
}

func copyIdentity(u *session.ManagedIdentity) *session.ManagedIdentity {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
