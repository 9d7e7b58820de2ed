package json

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		details     any
		wantDetails bool
	}{
		{name: "with upstream details", details: map[string]any{"error": "invalid_grant"}, wantDetails: true},
		{name: "without details", details: nil, wantDetails: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, http.StatusInternalServerError, "token exchange failed", tt.details)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "token exchange failed", body["error"])
			_, ok := body["details"]
			assert.Equal(t, tt.wantDetails, ok)
		})
	}
}

func TestWriteUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	WriteUnauthorized(w, "missing token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestDecodeRequest(t *testing.T) {
	var v struct {
		Code string `json:"code"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"abc"}`))
	require.NoError(t, DecodeRequest(r, 1024, &v))
	assert.Equal(t, "abc", v.Code)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":`))
	assert.Error(t, DecodeRequest(r, 1024, &v))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"`+strings.Repeat("x", 100)+`"}`))
	assert.Error(t, DecodeRequest(r, 16, &v))
}
