package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgellow/ortho-diary/internal/emailutil"
	"github.com/dgellow/ortho-diary/internal/log"
)

// UnmarshalJSON implements custom unmarshaling for ProviderConfig.
// Credentials resolve to empty strings when their env var is unset.
func (p *ProviderConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClientID     json.RawMessage `json:"clientId"`
		ClientSecret json.RawMessage `json:"clientSecret"`
		Scopes       []string        `json:"scopes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Scopes = raw.Scopes

	if raw.ClientID != nil {
		v, err := parseOptionalValue(raw.ClientID)
		if err != nil {
			return fmt.Errorf("parsing clientId: %w", err)
		}
		p.ClientID = v
	}
	if raw.ClientSecret != nil {
		v, err := parseOptionalValue(raw.ClientSecret)
		if err != nil {
			return fmt.Errorf("parsing clientSecret: %w", err)
		}
		p.ClientSecret = Secret(v)
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for ServerConfig
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Addr              json.RawMessage  `json:"addr"`
		DefaultOrigin     json.RawMessage  `json:"defaultOrigin"`
		AllowedOrigins    []string         `json:"allowedOrigins"`
		SessionSigningKey json.RawMessage  `json:"sessionSigningKey"`
		SessionTTL        string           `json:"sessionTtl"`
		RateLimit         *RateLimitConfig `json:"rateLimit"`
		TrustedProxies    []string         `json:"trustedProxies"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.AllowedOrigins = raw.AllowedOrigins
	s.RateLimit = raw.RateLimit
	s.TrustedProxies = raw.TrustedProxies

	if raw.Addr != nil {
		v, err := ParseConfigValue(raw.Addr)
		if err != nil {
			return fmt.Errorf("parsing addr: %w", err)
		}
		s.Addr = v
	}
	if raw.DefaultOrigin != nil {
		v, err := ParseConfigValue(raw.DefaultOrigin)
		if err != nil {
			return fmt.Errorf("parsing defaultOrigin: %w", err)
		}
		s.DefaultOrigin = v
	}
	if raw.SessionSigningKey != nil {
		v, err := parseOptionalValue(raw.SessionSigningKey)
		if err != nil {
			return fmt.Errorf("parsing sessionSigningKey: %w", err)
		}
		s.SessionSigningKey = Secret(v)
	}
	if raw.SessionTTL != "" {
		ttl, err := time.ParseDuration(raw.SessionTTL)
		if err != nil {
			return fmt.Errorf("parsing sessionTtl: %w", err)
		}
		s.SessionTTL = ttl
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for StorageConfig
func (s *StorageConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind              StorageKind     `json:"kind"`
		GCPProject        json.RawMessage `json:"gcpProject"`
		FirestoreDatabase string          `json:"firestoreDatabase"`
		DeletedRetention  string          `json:"deletedRetention"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Kind = raw.Kind
	s.FirestoreDatabase = raw.FirestoreDatabase

	if raw.DeletedRetention != "" {
		d, err := time.ParseDuration(raw.DeletedRetention)
		if err != nil {
			return fmt.Errorf("parsing deletedRetention: %w", err)
		}
		s.DeletedRetention = d
	}

	if raw.GCPProject != nil {
		v, err := ParseConfigValue(raw.GCPProject)
		if err != nil {
			return fmt.Errorf("parsing gcpProject: %w", err)
		}
		s.GCPProject = v
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for AdminConfig
func (a *AdminConfig) UnmarshalJSON(data []byte) error {
	type rawAdmin AdminConfig
	var raw rawAdmin
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = AdminConfig(raw)

	// Normalize admin emails for consistent comparison
	for i, emailAddr := range a.AdminEmails {
		a.AdminEmails[i] = emailutil.Normalize(emailAddr)
	}

	log.LogTraceWithFields("config", "Parsed admin config", map[string]any{
		"enabled": a.Enabled,
		"admins":  len(a.AdminEmails),
	})
	return nil
}
