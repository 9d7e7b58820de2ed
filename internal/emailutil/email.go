package emailutil

import "strings"

// PlaceholderDomain is the domain of synthesized addresses for accounts
// whose provider did not share an email.
const PlaceholderDomain = "ortho-diary.local"

// Normalize normalizes an email address for consistent comparison
// by converting to lowercase and trimming whitespace
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractDomain extracts domain from email address
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Placeholder builds the synthesized address <provider>_<id>@ortho-diary.local.
func Placeholder(provider, id string) string {
	return provider + "_" + id + "@" + PlaceholderDomain
}

// IsPlaceholder reports whether email was synthesized by Placeholder.
// Placeholder addresses never grant admin rights and cannot receive mail.
func IsPlaceholder(email string) bool {
	return ExtractDomain(Normalize(email)) == PlaceholderDomain
}
