// Package client talks to the ortho-diary server: the exchange proxy for
// Kakao and Naver logins, and the journal API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgellow/ortho-diary/internal/ioutil"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// Option configures a client.
type Option func(*base)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.httpClient = c }
}

// WithOrigin sets the Origin header. The exchange proxy derives the
// provider redirect URI from it.
func WithOrigin(origin string) Option {
	return func(b *base) { b.origin = origin }
}

type base struct {
	baseURL    string
	origin     string
	httpClient *http.Client
}

func newBase(baseURL string, opts []Option) base {
	b := base{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// do sends a JSON request and decodes a JSON response into out.
func (b *base) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.origin != "" {
		req.Header.Set("Origin", b.origin)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := ioutil.ReadLimited(resp.Body, 4096)
		apiErr := &APIError{Status: resp.StatusCode}
		// Proxies in front of the server answer with plain text or HTML.
		if err := json.Unmarshal([]byte(body), apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(body)
		}
		return apiErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
