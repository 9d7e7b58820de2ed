package adminauth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dgellow/ortho-diary/internal/config"
)

func TestIsAdmin(t *testing.T) {
	adminConfig := &config.AdminConfig{
		Enabled: true,
		AdminEmails: []string{
			"admin@example.com",
			"ADMIN2@EXAMPLE.COM",
			"  admin3@example.com  ",
			"kakao_1@ortho-diary.local",
		},
	}

	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{
			name:     "exact match lowercase",
			email:    "admin@example.com",
			expected: true,
		},
		{
			name:     "uppercase input for lowercase config",
			email:    "ADMIN@EXAMPLE.COM",
			expected: true,
		},
		{
			name:     "mixed case input",
			email:    "Admin@Example.Com",
			expected: true,
		},
		{
			name:     "exact match uppercase config",
			email:    "admin2@example.com",
			expected: true,
		},
		{
			name:     "whitespace in input",
			email:    "  admin@example.com  ",
			expected: true,
		},
		{
			name:     "match config with whitespace",
			email:    "admin3@example.com",
			expected: true,
		},
		{
			name:     "placeholder address listed in config",
			email:    "kakao_1@ortho-diary.local",
			expected: false,
		},
		{
			name:     "regular user",
			email:    "patient@example.com",
			expected: false,
		},
		{
			name:     "empty email",
			email:    "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAdmin(tt.email, adminConfig), "IsAdmin(%q)", tt.email)
		})
	}
}

func TestIsAdmin_Disabled(t *testing.T) {
	assert.False(t, IsAdmin("admin@example.com", nil))
	assert.False(t, IsAdmin("admin@example.com", &config.AdminConfig{
		Enabled:     false,
		AdminEmails: []string{"admin@example.com"},
	}))
}
