// Package session unifies managed Google sign-in and exchange-proxy logins
// into one canonical session value.
package session

import (
	"errors"
	"fmt"
	"strings"
)

// Origin records which login path produced a session.
type Origin string

const (
	OriginManaged Origin = "managed"
	OriginKakao   Origin = "kakao"
	OriginNaver   Origin = "naver"
)

// Session is the signed-in user as seen by the rest of the client.
type Session struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Origin      Origin `json:"origin"`
}

// Identity is either a ManagedIdentity or a ProxyIdentity.
type Identity interface {
	session() Session
	credential() string
}

// ManagedIdentity is a user reported by the managed auth source.
type ManagedIdentity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	// IDToken authenticates API calls for this user.
	IDToken string
}

func (m ManagedIdentity) session() Session {
	return Session{
		ID:          m.UID,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		AvatarURL:   m.PhotoURL,
		Origin:      OriginManaged,
	}
}

func (m ManagedIdentity) credential() string {
	return m.IDToken
}

// ProxyIdentity is a user returned by the exchange proxy. Its JSON form
// matches the proxy's user object plus the session token.
type ProxyIdentity struct {
	UID         string  `json:"uid"`
	ID          any     `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	Provider    string  `json:"provider"`
	HasEmail    bool    `json:"hasEmail"`
	Token       string  `json:"token,omitempty"`
}

// ErrInvalidIdentity is returned for proxy identities that fail Validate.
var ErrInvalidIdentity = errors.New("invalid proxy identity")

// Validate checks that the uid carries the provider prefix.
func (p ProxyIdentity) Validate() error {
	switch Origin(p.Provider) {
	case OriginKakao, OriginNaver:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidIdentity, p.Provider)
	}
	if !strings.HasPrefix(p.UID, p.Provider+"_") || len(p.UID) == len(p.Provider)+1 {
		return fmt.Errorf("%w: uid %q does not match provider %s", ErrInvalidIdentity, p.UID, p.Provider)
	}
	return nil
}

func (p ProxyIdentity) session() Session {
	s := Session{
		ID:          p.UID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Origin:      Origin(p.Provider),
	}
	if p.PhotoURL != nil {
		s.AvatarURL = *p.PhotoURL
	}
	return s
}

func (p ProxyIdentity) credential() string {
	return p.Token
}
