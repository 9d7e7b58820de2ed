package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NormalizedUser is the provider-independent identity produced by a code
// exchange. Proxy providers prefix UID with their type so identities from
// different providers never collide.
type NormalizedUser struct {
	UID         string  `json:"uid"`
	ID          any     `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	Provider    string  `json:"provider"`
	HasEmail    bool    `json:"hasEmail"`
}

// Provider abstracts identity provider operations.
type Provider interface {
	// Type returns the provider type identifier ("kakao", "naver", "google").
	Type() string

	// AuthURL generates the authorization URL the user is sent to.
	AuthURL(state, redirectURI string) string

	// ExchangeCode exchanges an authorization code for tokens. The code is
	// single use; callers must not retry.
	ExchangeCode(ctx context.Context, code, state, redirectURI string) (*oauth2.Token, error)

	// UserInfo fetches the profile and normalizes it.
	UserInfo(ctx context.Context, token *oauth2.Token) (*NormalizedUser, error)
}

// UpstreamError is a failure reported by a provider endpoint. Body holds
// the provider's payload when there was one.
type UpstreamError struct {
	Stage  string // "token" or "profile"
	Status int
	Body   []byte
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed: status %d", e.Stage, e.Status)
	}
	return fmt.Sprintf("%s request failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Details returns the upstream payload decoded as JSON when possible, the
// raw body as a string otherwise, and the error message when there was no
// body at all.
func (e *UpstreamError) Details() any {
	if len(e.Body) > 0 {
		var v any
		if err := json.Unmarshal(e.Body, &v); err == nil {
			return v
		}
		return string(e.Body)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Error()
}

// ErrorDetails extracts a details payload from any exchange error.
func ErrorDetails(err error) any {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Details()
	}
	return err.Error()
}

// Option configures provider endpoints and transport.
type Option func(*options)

type options struct {
	authURL    string
	tokenURL   string
	profileURL string
	httpClient *http.Client
}

// WithEndpoints overrides the provider URLs. Empty values keep the defaults.
func WithEndpoints(authURL, tokenURL, profileURL string) Option {
	return func(o *options) {
		if authURL != "" {
			o.authURL = authURL
		}
		if tokenURL != "" {
			o.tokenURL = tokenURL
		}
		if profileURL != "" {
			o.profileURL = profileURL
		}
	}
}

// WithHTTPClient sets the client used for token and profile calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

const upstreamTimeout = 10 * time.Second

func newOptions(authURL, tokenURL, profileURL string, opts []Option) options {
	o := options{
		authURL:    authURL,
		tokenURL:   tokenURL,
		profileURL: profileURL,
		httpClient: &http.Client{Timeout: upstreamTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// exchange runs the token request and converts oauth2 failures into
// UpstreamError so the provider payload survives.
func exchange(ctx context.Context, cfg oauth2.Config, client *http.Client, code string, params ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	token, err := cfg.Exchange(ctx, code, params...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return nil, &UpstreamError{Stage: "token", Status: status, Body: retrieveErr.Body, Err: err}
		}
		return nil, &UpstreamError{Stage: "token", Err: err}
	}
	return token, nil
}

// fetchProfile performs an authenticated GET and decodes the JSON body into v.
func fetchProfile(ctx context.Context, client *http.Client, url string, token *oauth2.Token, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building profile request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := client.Do(req)
	if err != nil {
		return &UpstreamError{Stage: "profile", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &UpstreamError{Stage: "profile", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Stage: "profile", Status: resp.StatusCode, Body: body}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &UpstreamError{Stage: "profile", Body: body, Err: fmt.Errorf("failed to decode profile: %w", err)}
	}
	return nil
}

// prefix returns at most the first n bytes of s.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
