package idp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleProvider_AuthURL(t *testing.T) {
	provider := NewGoogleProvider("client-id", "client-secret")

	authURL := provider.AuthURL("test-state", "http://localhost:5173/auth/google/callback")

	assert.Contains(t, authURL, "accounts.google.com")
	assert.Contains(t, authURL, "state=test-state")
	assert.Contains(t, authURL, "client_id=client-id")
	assert.Contains(t, authURL, "redirect_uri=")
	assert.Equal(t, "client-id", provider.ClientID())
}

func TestGoogleProvider_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = io.WriteString(w, `{"access_token":"g-access","token_type":"Bearer","id_token":"g.id.token"}`)
		case "/userinfo":
			err := json.NewEncoder(w).Encode(googleUserInfoResponse{
				Sub:           "10987",
				Email:         "patient@gmail.com",
				VerifiedEmail: true,
				Name:          "Patient Kim",
				Picture:       "https://lh3.googleusercontent.com/p.jpg",
			})
			require.NoError(t, err)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := NewGoogleProvider("client-id", "client-secret",
		WithEndpoints("", server.URL+"/token", server.URL+"/userinfo"))

	token, err := provider.ExchangeCode(context.Background(), "code", "", "http://localhost/cb")
	require.NoError(t, err)
	assert.Equal(t, "g.id.token", IDToken(token))

	user, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "10987", user.UID)
	assert.Equal(t, "patient@gmail.com", user.Email)
	assert.True(t, user.HasEmail)
	assert.Equal(t, "google", user.Provider)
	require.NotNil(t, user.PhotoURL)
}

func TestIDToken_Absent(t *testing.T) {
	assert.Empty(t, IDToken(nil))
	assert.Empty(t, IDToken(&oauth2.Token{AccessToken: "x"}))
}
