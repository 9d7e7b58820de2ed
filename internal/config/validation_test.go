package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name          string
		config        string
		wantErrors    []string
		wantWarnings  []string
		wantErrCount  int
		wantWarnCount int
	}{
		{
			name: "valid_config",
			config: `{
				"version": "v1",
				"server": {
					"addr": ":3001",
					"sessionSigningKey": {"$env": "SESSION_SIGNING_KEY"},
					"allowedOrigins": ["http://localhost:5173"]
				},
				"providers": {
					"kakao": {"clientId": {"$env": "KAKAO_APP_KEY"}},
					"naver": {"clientId": {"$env": "NAVER_CLIENT_ID"}, "clientSecret": {"$env": "NAVER_CLIENT_SECRET"}},
					"google": {"clientId": {"$env": "GOOGLE_CLIENT_ID"}, "clientSecret": {"$env": "GOOGLE_CLIENT_SECRET"}}
				},
				"storage": {"kind": "firestore", "gcpProject": {"$env": "GCP_PROJECT"}}
			}`,
			wantErrCount:  0,
			wantWarnCount: 0,
		},
		{
			name:          "missing_version",
			config:        `{"server": {"sessionSigningKey": {"$env": "K"}}, "providers": {}}`,
			wantErrors:    []string{"version field is required"},
			wantErrCount:  1,
			wantWarnCount: 0,
		},
		{
			name: "plain_text_secret",
			config: `{
				"version": "v1",
				"server": {"sessionSigningKey": {"$env": "K"}},
				"providers": {"naver": {"clientId": "id", "clientSecret": "secret"}}
			}`,
			wantErrors:    []string{"clientSecret must use environment variable reference"},
			wantErrCount:  1,
			wantWarnCount: 0,
		},
		{
			name: "bash_style_secret",
			config: `{
				"version": "v1",
				"server": {"sessionSigningKey": "${SESSION_SIGNING_KEY}"},
				"providers": {}
			}`,
			wantErrors:    []string{"found bash-style syntax"},
			wantWarnings:  []string{"found bash-style syntax"},
			wantErrCount:  1,
			wantWarnCount: 1,
		},
		{
			name: "unknown_provider",
			config: `{
				"version": "v1",
				"server": {"sessionSigningKey": {"$env": "K"}},
				"providers": {"facebook": {"clientId": "x"}}
			}`,
			wantErrors:    []string{"unknown provider 'facebook'"},
			wantErrCount:  1,
			wantWarnCount: 0,
		},
		{
			name: "naver_without_secret_warns",
			config: `{
				"version": "v1",
				"server": {"sessionSigningKey": {"$env": "K"}},
				"providers": {"naver": {"clientId": {"$env": "NAVER_CLIENT_ID"}}}
			}`,
			wantWarnings:  []string{"naver login will be disabled"},
			wantErrCount:  0,
			wantWarnCount: 1,
		},
		{
			name: "invalid_rate_limit",
			config: `{
				"version": "v1",
				"server": {"sessionSigningKey": {"$env": "K"}, "rateLimit": {"requestsPerSecond": 0, "burst": 0}},
				"providers": {}
			}`,
			wantErrors:    []string{"requestsPerSecond must be a positive number", "burst must be at least 1"},
			wantErrCount:  2,
			wantWarnCount: 0,
		},
		{
			name: "admin_without_emails",
			config: `{
				"version": "v1",
				"server": {"sessionSigningKey": {"$env": "K"}},
				"providers": {},
				"admin": {"enabled": true, "adminEmails": []}
			}`,
			wantWarnings:  []string{"adminEmails is empty"},
			wantErrCount:  0,
			wantWarnCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateFile(writeConfig(t, tt.config))
			require.NoError(t, err)

			assert.Len(t, result.Errors, tt.wantErrCount, "errors: %+v", result.Errors)
			assert.Len(t, result.Warnings, tt.wantWarnCount, "warnings: %+v", result.Warnings)

			for _, want := range tt.wantErrors {
				assert.True(t, containsMessage(result.Errors, want), "expected error containing %q in %+v", want, result.Errors)
			}
			for _, want := range tt.wantWarnings {
				assert.True(t, containsMessage(result.Warnings, want), "expected warning containing %q in %+v", want, result.Warnings)
			}
			assert.Equal(t, tt.wantErrCount == 0, result.IsValid())
		})
	}
}

func TestValidateFile_InvalidJSON(t *testing.T) {
	result, err := ValidateFile(writeConfig(t, `{"version": `))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "invalid JSON")
}

func TestValidateFile_MissingFile(t *testing.T) {
	_, err := ValidateFile("/nonexistent/config.json")
	assert.Error(t, err)
}

func containsMessage(errs []ValidationError, want string) bool {
	for _, e := range errs {
		if strings.Contains(e.Message, want) {
			return true
		}
	}
	return false
}
