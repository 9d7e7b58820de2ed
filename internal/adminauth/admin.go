package adminauth

import (
	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/emailutil"
)

// IsAdmin checks if a user may decide verification requests. Only
// addresses in the config admin list qualify, and synthesized placeholder
// addresses never do.
func IsAdmin(email string, adminConfig *config.AdminConfig) bool {
	if adminConfig == nil || !adminConfig.Enabled {
		return false
	}

	normalizedEmail := emailutil.Normalize(email)
	if normalizedEmail == "" || emailutil.IsPlaceholder(normalizedEmail) {
		return false
	}

	for _, adminEmail := range adminConfig.AdminEmails {
		// Admin emails are normalized during config load, but we normalize
		// here too to handle configs built in code
		if emailutil.Normalize(adminEmail) == normalizedEmail {
			return true
		}
	}
	return false
}
