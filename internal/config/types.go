package config

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"time"
)

// ConfigVersion is the only accepted config file version prefix.
const ConfigVersion = "v1"

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// ProviderType names a login method.
type ProviderType string

const (
	ProviderKakao  ProviderType = "kakao"
	ProviderNaver  ProviderType = "naver"
	ProviderGoogle ProviderType = "google"
)

// StorageKind selects the persistence backend.
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
)

// ProviderConfig holds credentials for one login provider. An empty
// ClientID means the provider is not configured and its login method is
// unusable.
type ProviderConfig struct {
	ClientID     string   `json:"clientId"`
	ClientSecret Secret   `json:"clientSecret"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Configured reports whether the provider has the credentials it needs.
// Kakao's token endpoint only needs the REST app key.
func (p *ProviderConfig) Configured(t ProviderType) bool {
	if p == nil || p.ClientID == "" {
		return false
	}
	if t == ProviderKakao {
		return true
	}
	return p.ClientSecret != ""
}

// ProvidersConfig groups login provider credentials.
type ProvidersConfig struct {
	Kakao  *ProviderConfig `json:"kakao,omitempty"`
	Naver  *ProviderConfig `json:"naver,omitempty"`
	Google *ProviderConfig `json:"google,omitempty"`
}

// Get returns the config for a provider, or nil.
func (p ProvidersConfig) Get(t ProviderType) *ProviderConfig {
	switch t {
	case ProviderKakao:
		return p.Kakao
	case ProviderNaver:
		return p.Naver
	case ProviderGoogle:
		return p.Google
	default:
		return nil
	}
}

// RateLimitConfig bounds requests per client IP on the exchange endpoints.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
}

// ServerConfig is the HTTP surface configuration.
type ServerConfig struct {
	Addr              string           `json:"addr"`
	DefaultOrigin     string           `json:"defaultOrigin"`
	AllowedOrigins    []string         `json:"allowedOrigins"`
	SessionSigningKey Secret           `json:"sessionSigningKey"`
	SessionTTL        time.Duration    `json:"sessionTtl"`
	RateLimit         *RateLimitConfig `json:"rateLimit,omitempty"`
	// TrustedProxies are the addresses or CIDRs whose X-Forwarded-For
	// header is believed when rate limiting.
	TrustedProxies []string `json:"trustedProxies,omitempty"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (s ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		if p, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: not an address or CIDR", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// StorageConfig selects and configures the document store.
// DeletedRetention enables purging soft-deleted photos older than it.
// Zero keeps every soft-deleted photo.
type StorageConfig struct {
	Kind              StorageKind   `json:"kind"`
	GCPProject        string        `json:"gcpProject,omitempty"`
	FirestoreDatabase string        `json:"firestoreDatabase,omitempty"`
	DeletedRetention  time.Duration `json:"deletedRetention,omitempty"`
}

// AdminConfig lists the accounts allowed to decide verification requests.
type AdminConfig struct {
	Enabled     bool     `json:"enabled"`
	AdminEmails []string `json:"adminEmails"`
}

// Config represents the config structure with resolved values
type Config struct {
	Server    ServerConfig    `json:"server"`
	Providers ProvidersConfig `json:"providers"`
	Storage   StorageConfig   `json:"storage"`
	Admin     *AdminConfig    `json:"admin,omitempty"`
}

const (
	defaultAddr       = ":3001"
	defaultOrigin     = "http://localhost:5173"
	defaultSessionTTL = 7 * 24 * time.Hour
)

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.DefaultOrigin == "" {
		c.Server.DefaultOrigin = defaultOrigin
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = defaultSessionTTL
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = StorageMemory
	}
	if c.Storage.Kind == StorageFirestore && c.Storage.FirestoreDatabase == "" {
		c.Storage.FirestoreDatabase = "(default)"
	}
}

// rawConfigValue is a string or env reference after resolution.
// This is only used during parsing, not in the final config
type rawConfigValue struct {
	value  string
	envVar string
}

// ParseConfigValue parses a JSON value that could be a string or {"$env": "VAR"}.
// An unset variable is an error.
func ParseConfigValue(raw json.RawMessage) (string, error) {
	parsed, err := parseConfigValue(raw)
	if err != nil {
		return "", err
	}
	if parsed.envVar != "" && parsed.value == "" {
		return "", fmt.Errorf("environment variable %s not set", parsed.envVar)
	}
	return parsed.value, nil
}

// parseOptionalValue is ParseConfigValue for credentials whose absence
// disables a feature instead of failing the load.
func parseOptionalValue(raw json.RawMessage) (string, error) {
	parsed, err := parseConfigValue(raw)
	if err != nil {
		return "", err
	}
	return parsed.value, nil
}

func parseConfigValue(raw json.RawMessage) (*rawConfigValue, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &rawConfigValue{value: str}, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return nil, fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return &rawConfigValue{value: value, envVar: envVar}, nil
}
