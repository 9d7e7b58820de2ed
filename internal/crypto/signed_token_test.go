package crypto

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	UID      string `json:"uid"`
	Provider string `json:"provider"`
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	token, err := signer.Sign(testClaims{UID: "kakao_123", Provider: "kakao"})
	require.NoError(t, err)

	var got testClaims
	require.NoError(t, signer.Verify(token, &got))
	assert.Equal(t, "kakao_123", got.UID)
}

func TestTokenSigner_Rejects(t *testing.T) {
	signer := NewTokenSigner([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	other := NewTokenSigner([]byte("fedcba9876543210fedcba9876543210"), time.Hour)

	token, err := signer.Sign(testClaims{UID: "naver_1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"no separator", "abc"},
		{"bad encoding", "!!!.sig"},
		{"tampered payload", "e30" + token[3:]},
		{"wrong key", func() string { s, _ := other.Sign(testClaims{UID: "naver_1"}); return s }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testClaims
			err := signer.Verify(tt.token, &got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestTokenSigner_Expired(t *testing.T) {
	signer := NewTokenSigner([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	token, err := signer.Sign(testClaims{UID: "kakao_1"})
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	var got testClaims
	assert.ErrorIs(t, signer.Verify(token, &got), ErrTokenExpired)
}

func TestDeriveKey(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	session, err := DeriveKey(secret, "session")
	require.NoError(t, err)
	state, err := DeriveKey(secret, "oauth-state")
	require.NoError(t, err)
	again, err := DeriveKey(secret, "session")
	require.NoError(t, err)

	assert.Len(t, session, 32)
	assert.NotEqual(t, session, state)
	assert.Equal(t, session, again)

	_, err = DeriveKey(nil, "session")
	assert.Error(t, err)
}

func TestCSRFProtection(t *testing.T) {
	csrf := NewCSRFProtection([]byte("state-key"), time.Minute)

	token, err := csrf.Generate()
	require.NoError(t, err)
	assert.True(t, csrf.Validate(token))

	assert.False(t, csrf.Validate(token+"x"))
	assert.False(t, csrf.Validate(strings.Replace(token, ":", ";", 1)))

	other := NewCSRFProtection([]byte("other-key"), time.Minute)
	assert.False(t, other.Validate(token))

	expired := NewCSRFProtection([]byte("state-key"), -time.Second)
	assert.False(t, expired.Validate(token))
}
