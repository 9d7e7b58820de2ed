package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			name:  "simple join",
			base:  "https://example.com",
			paths: []string{"api", "photos"},
			want:  "https://example.com/api/photos",
		},
		{
			name:  "base with path",
			base:  "https://example.com/diary",
			paths: []string{"api", "photos"},
			want:  "https://example.com/diary/api/photos",
		},
		{
			name:  "trailing slash preserved",
			base:  "https://example.com",
			paths: []string{"api", "photos/"},
			want:  "https://example.com/api/photos/",
		},
		{
			name:  "empty paths",
			base:  "https://example.com",
			paths: []string{},
			want:  "https://example.com",
		},
		{
			name:  "base with trailing slash",
			base:  "https://example.com/",
			paths: []string{"api"},
			want:  "https://example.com/api",
		},
		{
			name:    "invalid base URL",
			base:    "://invalid",
			paths:   []string{"api"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackURL(t *testing.T) {
	tests := []struct {
		name     string
		origin   string
		provider string
		want     string
		wantErr  bool
	}{
		{
			name:     "dev origin",
			origin:   "http://localhost:5173",
			provider: "kakao",
			want:     "http://localhost:5173/auth/kakao/callback",
		},
		{
			name:     "origin with trailing slash",
			origin:   "https://diary.example.com/",
			provider: "naver",
			want:     "https://diary.example.com/auth/naver/callback",
		},
		{
			name:     "relative origin",
			origin:   "diary.example.com",
			provider: "kakao",
			wantErr:  true,
		},
		{
			name:     "non http scheme",
			origin:   "javascript://x",
			provider: "kakao",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CallbackURL(tt.origin, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
