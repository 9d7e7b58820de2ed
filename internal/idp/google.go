package idp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements the managed sign-in method. Unlike the proxy
// providers, its UID is the provider subject unchanged.
type GoogleProvider struct {
	config     oauth2.Config
	profileURL string
	opts       options
}

// googleUserInfoResponse represents Google's userinfo response.
// Note: Google uses `verified_email` instead of OIDC standard `email_verified`.
type googleUserInfoResponse struct {
	Sub           string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleProvider creates a new Google OAuth provider.
func NewGoogleProvider(clientID, clientSecret string, opts ...Option) *GoogleProvider {
	o := newOptions(google.Endpoint.AuthURL, google.Endpoint.TokenURL, googleUserInfoURL, opts)
	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  o.authURL,
				TokenURL: o.tokenURL,
			},
		},
		profileURL: o.profileURL,
		opts:       o,
	}
}

// Type returns the provider type.
func (p *GoogleProvider) Type() string {
	return "google"
}

// ClientID is the audience of ID tokens issued for this client.
func (p *GoogleProvider) ClientID() string {
	return p.config.ClientID
}

// AuthURL generates the authorization URL.
func (p *GoogleProvider) AuthURL(state, redirectURI string) string {
	cfg := p.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode exchanges an authorization code for tokens.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code, _ string, redirectURI string) (*oauth2.Token, error) {
	cfg := p.config
	cfg.RedirectURL = redirectURI
	return exchange(ctx, cfg, p.opts.httpClient, code)
}

// UserInfo fetches user information from Google's userinfo endpoint.
func (p *GoogleProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*NormalizedUser, error) {
	var user googleUserInfoResponse
	if err := fetchProfile(ctx, p.opts.httpClient, p.profileURL, token, &user); err != nil {
		return nil, err
	}
	if user.Sub == "" {
		return nil, &UpstreamError{Stage: "profile", Err: fmt.Errorf("google profile has no id")}
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}
	return &NormalizedUser{
		UID:         user.Sub,
		ID:          user.Sub,
		Email:       user.Email,
		DisplayName: name,
		PhotoURL:    optionalString(user.Picture),
		Provider:    "google",
		HasEmail:    user.Email != "" && user.VerifiedEmail,
	}, nil
}

// IDToken returns the OpenID Connect ID token carried by a Google token
// response, or "" when absent.
func IDToken(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	idToken, _ := token.Extra("id_token").(string)
	return idToken
}
