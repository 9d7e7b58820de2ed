package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/dgellow/ortho-diary/internal/session"
)

// ExchangeClient calls the exchange proxy.
type ExchangeClient struct {
	base
	group singleflight.Group // one in-flight exchange per code
}

// NewExchangeClient creates a client for the server at baseURL.
func NewExchangeClient(baseURL string, opts ...Option) *ExchangeClient {
	return &ExchangeClient{base: newBase(baseURL, opts)}
}

type exchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

type exchangeResponse struct {
	Success bool                   `json:"success"`
	User    *session.ProxyIdentity `json:"user"`
	Token   string                 `json:"token,omitempty"`
}

// Exchange trades an authorization code for the normalized user.
// Concurrent calls for the same code share one request.
func (c *ExchangeClient) Exchange(ctx context.Context, provider, code, state string) (*session.ProxyIdentity, error) {
	v, err, _ := c.group.Do(provider+":"+code, func() (any, error) {
		var resp exchangeResponse
		if err := c.do(ctx, "POST", "/auth/"+provider, "", exchangeRequest{Code: code, State: state}, &resp); err != nil {
			return nil, err
		}
		if !resp.Success || resp.User == nil {
			return nil, errors.New("exchange response has no user")
		}
		identity := *resp.User
		identity.Token = resp.Token
		if err := identity.Validate(); err != nil {
			return nil, err
		}
		return &identity, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s login: %w", provider, err)
	}
	identity := *v.(*session.ProxyIdentity)
	return &identity, nil
}
