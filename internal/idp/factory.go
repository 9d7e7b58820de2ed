package idp

import (
	"errors"
	"fmt"

	"github.com/dgellow/ortho-diary/internal/config"
)

// ErrNotConfigured is returned for a provider whose credentials are missing.
var ErrNotConfigured = errors.New("provider not configured")

// NewProvider creates a Provider for the given type from its config.
func NewProvider(t config.ProviderType, cfg *config.ProviderConfig, opts ...Option) (Provider, error) {
	if !cfg.Configured(t) {
		return nil, fmt.Errorf("%s: %w", t, ErrNotConfigured)
	}

	switch t {
	case config.ProviderKakao:
		return NewKakaoProvider(cfg.ClientID, opts...), nil
	case config.ProviderNaver:
		return NewNaverProvider(cfg.ClientID, string(cfg.ClientSecret), opts...), nil
	case config.ProviderGoogle:
		return NewGoogleProvider(cfg.ClientID, string(cfg.ClientSecret), opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", t)
	}
}

// NewProviders builds every configured provider. Unconfigured ones are
// omitted.
func NewProviders(cfg config.ProvidersConfig, opts ...Option) map[config.ProviderType]Provider {
	providers := make(map[config.ProviderType]Provider)
	for _, t := range []config.ProviderType{config.ProviderKakao, config.ProviderNaver, config.ProviderGoogle} {
		p, err := NewProvider(t, cfg.Get(t), opts...)
		if err != nil {
			continue
		}
		providers[t] = p
	}
	return providers
}
