package server

import (
	"fmt"
	"net/http"

	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/crypto"
	"github.com/dgellow/ortho-diary/internal/idp"
	jsonwriter "github.com/dgellow/ortho-diary/internal/json"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/urlutil"
)

const maxExchangeBody = 64 << 10

// Messages shown by the web client.
const (
	msgCodeRequired = "인증 코드가 필요합니다."
)

var providerFailureMessages = map[config.ProviderType]string{
	config.ProviderKakao: "카카오 인증 처리 중 오류가 발생했습니다.",
	config.ProviderNaver: "네이버 인증 처리 중 오류가 발생했습니다.",
}

// AuthHandlers serves the code exchange endpoints.
type AuthHandlers struct {
	providers     map[config.ProviderType]idp.Provider
	defaultOrigin string
	signer        *crypto.TokenSigner
}

// NewAuthHandlers creates the exchange handlers. Providers missing from
// providers answer 500 "not configured". signer may be nil, in which case
// no session token is issued.
func NewAuthHandlers(providers map[config.ProviderType]idp.Provider, defaultOrigin string, signer *crypto.TokenSigner) *AuthHandlers {
	return &AuthHandlers{
		providers:     providers,
		defaultOrigin: defaultOrigin,
		signer:        signer,
	}
}

type exchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// ExchangeResponse is the body of a successful exchange.
type ExchangeResponse struct {
	Success bool                `json:"success"`
	User    *idp.NormalizedUser `json:"user"`
	Token   string              `json:"token,omitempty"`
}

// ExchangeHandler trades an authorization code for the normalized user of
// provider t. The code is exchanged once; upstream failures are not retried.
func (h *AuthHandlers) ExchangeHandler(t config.ProviderType) http.HandlerFunc {
	failure := providerFailureMessages[t]
	if failure == "" {
		failure = fmt.Sprintf("%s 인증 처리 중 오류가 발생했습니다.", t)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req exchangeRequest
		if err := jsonwriter.DecodeRequest(r, maxExchangeBody, &req); err != nil || req.Code == "" {
			jsonwriter.WriteBadRequest(w, msgCodeRequired)
			return
		}

		provider, ok := h.providers[t]
		if !ok {
			err := fmt.Errorf("%s: %w", t, idp.ErrNotConfigured)
			log.LogErrorWithFields("auth", "Exchange requested for unconfigured provider", map[string]any{
				"provider": string(t),
			})
			jsonwriter.WriteInternalServerError(w, failure, err.Error())
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = h.defaultOrigin
		}
		redirectURI, err := urlutil.CallbackURL(origin, string(t))
		if err != nil {
			jsonwriter.WriteBadRequest(w, err.Error())
			return
		}

		log.LogDebugWithFields("auth", "Exchanging authorization code", map[string]any{
			"provider":    string(t),
			"redirectUri": redirectURI,
		})

		token, err := provider.ExchangeCode(r.Context(), req.Code, req.State, redirectURI)
		if err != nil {
			h.writeUpstreamError(w, t, failure, err)
			return
		}

		user, err := provider.UserInfo(r.Context(), token)
		if err != nil {
			h.writeUpstreamError(w, t, failure, err)
			return
		}

		resp := ExchangeResponse{Success: true, User: user}
		if h.signer != nil {
			signed, err := h.signer.Sign(claimsFor(user))
			if err != nil {
				log.LogErrorWithFields("auth", "Failed to sign session token", map[string]any{
					"provider": string(t),
					"error":    err.Error(),
				})
				jsonwriter.WriteInternalServerError(w, failure, err.Error())
				return
			}
			resp.Token = signed
		}

		log.LogInfoWithFields("auth", "Provider login succeeded", map[string]any{
			"provider": string(t),
			"uid":      user.UID,
			"hasEmail": user.HasEmail,
		})
		_ = jsonwriter.Write(w, resp)
	}
}

func (h *AuthHandlers) writeUpstreamError(w http.ResponseWriter, t config.ProviderType, message string, err error) {
	details := idp.ErrorDetails(err)
	log.LogErrorWithFields("auth", "Provider login failed", map[string]any{
		"provider": string(t),
		"error":    err.Error(),
		"details":  details,
	})
	jsonwriter.WriteInternalServerError(w, message, details)
}
