package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name   string
		secret Secret
		want   string
	}{
		{
			name:   "non-empty secret",
			secret: Secret("naver-client-secret"),
			want:   "***",
		},
		{
			name:   "empty secret",
			secret: Secret(""),
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.secret.String())
			assert.Equal(t, "value: "+tt.want, fmt.Sprintf("value: %s", tt.secret))
			if tt.secret != "" {
				assert.NotContains(t, fmt.Sprintf("%v", tt.secret), string(tt.secret))
			}
		})
	}
}

func TestSecretJSONMarshal(t *testing.T) {
	cfg := ProviderConfig{
		ClientID:     "naver-client",
		ClientSecret: Secret("naver-client-secret"),
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "naver-client-secret")
	assert.Contains(t, string(data), "naver-client")
	assert.Contains(t, string(data), `"clientSecret":"***"`)
}

func TestSecretInStruct(t *testing.T) {
	server := ServerConfig{
		Addr:              ":3001",
		SessionSigningKey: Secret("0123456789abcdef0123456789abcdef"),
	}

	str := fmt.Sprintf("%+v", server)
	assert.False(t, strings.Contains(str, "0123456789abcdef"), "struct representation leaked signing key: %s", str)
}
