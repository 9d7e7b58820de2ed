package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgellow/ortho-diary/internal/emailutil"
	"github.com/dgellow/ortho-diary/internal/envutil"
	"github.com/dgellow/ortho-diary/internal/log"
)

// minSigningKeyLen is the shortest accepted session signing key.
const minSigningKeyLen = 32

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, ConfigVersion) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	config.applyDefaults()

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// FromEnv builds a config from environment variables alone. It is used when
// no config file is given and mirrors the variable names of the web client's
// deployment.
func FromEnv() (Config, error) {
	config := Config{
		Server: ServerConfig{
			DefaultOrigin:     os.Getenv("DEFAULT_ORIGIN"),
			SessionSigningKey: Secret(os.Getenv("SESSION_SIGNING_KEY")),
		},
		Providers: ProvidersConfig{
			Kakao: &ProviderConfig{
				ClientID: envutil.FirstNonEmpty("VITE_KAKAO_APP_KEY", "KAKAO_APP_KEY"),
			},
			Naver: &ProviderConfig{
				ClientID:     envutil.FirstNonEmpty("VITE_NAVER_CLIENT_ID", "NAVER_CLIENT_ID"),
				ClientSecret: Secret(os.Getenv("NAVER_CLIENT_SECRET")),
			},
			Google: &ProviderConfig{
				ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
				ClientSecret: Secret(os.Getenv("GOOGLE_CLIENT_SECRET")),
			},
		},
	}

	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = splitList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		config.Server.TrustedProxies = splitList(proxies)
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return Config{}, fmt.Errorf("parsing SESSION_TTL: %w", err)
		}
		config.Server.SessionTTL = d
	}
	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		v, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parsing RATE_LIMIT_RPS: %w", err)
		}
		config.Server.RateLimit = &RateLimitConfig{RequestsPerSecond: v, Burst: int(v*2) + 1}
	}
	if project := os.Getenv("GCP_PROJECT"); project != "" {
		config.Storage = StorageConfig{
			Kind:              StorageFirestore,
			GCPProject:        project,
			FirestoreDatabase: os.Getenv("FIRESTORE_DATABASE"),
		}
	}
	if admins := os.Getenv("ADMIN_EMAILS"); admins != "" {
		emails := splitList(admins)
		for i, e := range emails {
			emails[i] = emailutil.Normalize(e)
		}
		config.Admin = &AdminConfig{Enabled: true, AdminEmails: emails}
	}

	config.applyDefaults()
	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateRawConfig validates the config structure before environment resolution
func validateRawConfig(rawConfig map[string]any) error {
	if server, ok := rawConfig["server"].(map[string]any); ok {
		if err := requireEnvRef(server, "sessionSigningKey"); err != nil {
			return err
		}
	}
	if providers, ok := rawConfig["providers"].(map[string]any); ok {
		for name, p := range providers {
			provider, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if err := requireEnvRef(provider, "clientSecret"); err != nil {
				return fmt.Errorf("providers.%s: %w", name, err)
			}
		}
	}
	return nil
}

func requireEnvRef(obj map[string]any, field string) error {
	value, exists := obj[field]
	if !exists {
		return nil
	}
	if _, isString := value.(string); isString {
		return fmt.Errorf("%s must use environment variable reference for security", field)
	}
	if refMap, isMap := value.(map[string]any); isMap {
		if _, hasEnv := refMap["$env"]; !hasEnv {
			return fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", field)
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if config.Server.DefaultOrigin == "" {
		return fmt.Errorf("server.defaultOrigin is required")
	}
	if config.Server.SessionTTL < 0 {
		return fmt.Errorf("server.sessionTtl cannot be negative")
	}
	if key := config.Server.SessionSigningKey; key != "" && len(key) < minSigningKeyLen {
		return fmt.Errorf("sessionSigningKey must be at least %d characters (got %d). Generate with: openssl rand -base64 32", minSigningKeyLen, len(key))
	}
	if rl := config.Server.RateLimit; rl != nil {
		if rl.RequestsPerSecond <= 0 {
			return fmt.Errorf("server.rateLimit.requestsPerSecond must be positive")
		}
		if rl.Burst < 1 {
			return fmt.Errorf("server.rateLimit.burst must be at least 1")
		}
	}

	if _, err := config.Server.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("server.trustedProxies: %w", err)
	}

	if config.Storage.DeletedRetention < 0 {
		return fmt.Errorf("storage.deletedRetention must not be negative")
	}

	switch config.Storage.Kind {
	case StorageMemory:
	case StorageFirestore:
		if config.Storage.GCPProject == "" {
			return fmt.Errorf("storage.gcpProject is required when using firestore storage")
		}
	default:
		return fmt.Errorf("unsupported storage kind: %s", config.Storage.Kind)
	}

	if config.Admin != nil && config.Admin.Enabled && len(config.Admin.AdminEmails) == 0 {
		log.LogWarn("Admin is enabled but no admin emails are configured")
	}

	return nil
}

// UsableProviders returns the login providers whose credentials are present.
func (c *Config) UsableProviders() map[ProviderType]bool {
	usable := make(map[ProviderType]bool, 3)
	for _, t := range []ProviderType{ProviderKakao, ProviderNaver, ProviderGoogle} {
		usable[t] = c.Providers.Get(t).Configured(t)
	}
	return usable
}

// Warnings lists non-fatal configuration problems. A login method with
// missing credentials stays unusable but does not stop the server.
func (c *Config) Warnings() []string {
	var warnings []string
	for _, t := range []ProviderType{ProviderKakao, ProviderNaver, ProviderGoogle} {
		if !c.Providers.Get(t).Configured(t) {
			warnings = append(warnings, fmt.Sprintf("%s login is disabled: credentials not configured", t))
		}
	}
	if c.Server.SessionSigningKey == "" {
		warnings = append(warnings, "sessionSigningKey not set: exchange responses carry no session token and journal API calls require Google ID tokens")
	}
	if c.Storage.Kind == StorageMemory {
		warnings = append(warnings, "using in-memory storage: journal data is lost on restart")
	}
	return warnings
}
