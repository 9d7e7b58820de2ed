package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      ProxyIdentity
		wantErr bool
	}{
		{"kakao", ProxyIdentity{UID: "kakao_123", Provider: "kakao"}, false},
		{"naver", ProxyIdentity{UID: "naver_abc", Provider: "naver"}, false},
		{"unknown provider", ProxyIdentity{UID: "google_1", Provider: "google"}, true},
		{"prefix mismatch", ProxyIdentity{UID: "naver_123", Provider: "kakao"}, true},
		{"empty id", ProxyIdentity{UID: "kakao_", Provider: "kakao"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProxyIdentity_Session(t *testing.T) {
	photo := "https://img.example/p.jpg"
	s := ProxyIdentity{
		UID:         "kakao_123",
		DisplayName: "카카오사용자123",
		Email:       "kakao_123@ortho-diary.local",
		PhotoURL:    &photo,
		Provider:    "kakao",
	}.session()

	assert.Equal(t, Session{
		ID:          "kakao_123",
		DisplayName: "카카오사용자123",
		Email:       "kakao_123@ortho-diary.local",
		AvatarURL:   photo,
		Origin:      OriginKakao,
	}, s)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoIdentity)

	id := ProxyIdentity{UID: "naver_xyz", Provider: "naver", Email: "a@b.c", Token: "tok"}
	require.NoError(t, store.Save(id))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "naver_xyz", loaded.UID)
	assert.Equal(t, "tok", loaded.Token)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = store.Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoIdentity)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoIdentity)
}
