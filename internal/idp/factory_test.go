package idp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/ortho-diary/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		typ      config.ProviderType
		cfg      *config.ProviderConfig
		wantType string
		wantErr  error
	}{
		{
			name:     "kakao_with_app_key",
			typ:      config.ProviderKakao,
			cfg:      &config.ProviderConfig{ClientID: "key"},
			wantType: "kakao",
		},
		{
			name:     "naver_with_credentials",
			typ:      config.ProviderNaver,
			cfg:      &config.ProviderConfig{ClientID: "id", ClientSecret: "secret"},
			wantType: "naver",
		},
		{
			name:     "google_with_credentials",
			typ:      config.ProviderGoogle,
			cfg:      &config.ProviderConfig{ClientID: "id", ClientSecret: "secret"},
			wantType: "google",
		},
		{
			name:    "naver_missing_secret",
			typ:     config.ProviderNaver,
			cfg:     &config.ProviderConfig{ClientID: "id"},
			wantErr: ErrNotConfigured,
		},
		{
			name:    "nil_config",
			typ:     config.ProviderKakao,
			cfg:     nil,
			wantErr: ErrNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.typ, tt.cfg)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, provider.Type())
		})
	}
}

func TestNewProviders_SkipsUnconfigured(t *testing.T) {
	providers := NewProviders(config.ProvidersConfig{
		Kakao: &config.ProviderConfig{ClientID: "key"},
		Naver: &config.ProviderConfig{ClientID: "id"},
	})

	assert.Len(t, providers, 1)
	assert.Contains(t, providers, config.ProviderKakao)
}
