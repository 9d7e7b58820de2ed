package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/dgellow/ortho-diary/internal/crypto"
	"github.com/dgellow/ortho-diary/internal/idp"
	"github.com/dgellow/ortho-diary/internal/servicecontext"
)

// SessionClaims is the payload of a session token minted after a proxy
// login.
type SessionClaims struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Provider    string `json:"provider"`
}

func claimsFor(user *idp.NormalizedUser) SessionClaims {
	claims := SessionClaims{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Provider:    user.Provider,
	}
	if user.PhotoURL != nil {
		claims.PhotoURL = *user.PhotoURL
	}
	return claims
}

// IDTokenValidator verifies a Google ID token for an audience.
type IDTokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Authenticator resolves bearer tokens to callers. It accepts session
// tokens signed by signer and, when googleClientID is set, Google ID
// tokens issued for that client.
type Authenticator struct {
	signer         *crypto.TokenSigner
	googleClientID string
	validate       IDTokenValidator
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithIDTokenValidator replaces Google's ID token verification.
func WithIDTokenValidator(v IDTokenValidator) AuthenticatorOption {
	return func(a *Authenticator) { a.validate = v }
}

// NewAuthenticator creates an Authenticator. signer may be nil when no
// session signing key is configured.
func NewAuthenticator(signer *crypto.TokenSigner, googleClientID string, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		signer:         signer,
		googleClientID: googleClientID,
		validate:       idtoken.Validate,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate returns the caller for token.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (servicecontext.Caller, error) {
	// Session tokens have two dot-separated parts, JWTs three.
	if strings.Count(token, ".") == 1 {
		if a.signer == nil {
			return servicecontext.Caller{}, errors.New("session tokens are not enabled")
		}
		var claims SessionClaims
		if err := a.signer.Verify(token, &claims); err != nil {
			return servicecontext.Caller{}, err
		}
		if claims.UID == "" {
			return servicecontext.Caller{}, fmt.Errorf("%w: missing uid", crypto.ErrInvalidToken)
		}
		return servicecontext.Caller{
			UID:         claims.UID,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
			PhotoURL:    claims.PhotoURL,
			Source:      servicecontext.SourceSessionToken,
		}, nil
	}

	if a.googleClientID == "" {
		return servicecontext.Caller{}, errors.New("google ID tokens are not enabled")
	}
	payload, err := a.validate(ctx, token, a.googleClientID)
	if err != nil {
		return servicecontext.Caller{}, fmt.Errorf("%w: %v", crypto.ErrInvalidToken, err)
	}
	if payload.Subject == "" {
		return servicecontext.Caller{}, fmt.Errorf("%w: missing subject", crypto.ErrInvalidToken)
	}

	caller := servicecontext.Caller{
		UID:    payload.Subject,
		Source: servicecontext.SourceGoogleIDToken,
	}
	if verified, _ := payload.Claims["email_verified"].(bool); verified {
		caller.Email, _ = payload.Claims["email"].(string)
	}
	caller.DisplayName, _ = payload.Claims["name"].(string)
	caller.PhotoURL, _ = payload.Claims["picture"].(string)
	return caller, nil
}
