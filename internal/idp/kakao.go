package idp

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/dgellow/ortho-diary/internal/emailutil"
)

const (
	kakaoAuthURL    = "https://kauth.kakao.com/oauth/authorize"
	kakaoTokenURL   = "https://kauth.kakao.com/oauth/token"
	kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"
)

// KakaoProvider exchanges Kakao authorization codes. Kakao's token endpoint
// authenticates the client with the REST app key alone.
type KakaoProvider struct {
	config     oauth2.Config
	profileURL string
	opts       options
}

// kakaoUserResponse represents the /v2/user/me response.
type kakaoUserResponse struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
	KakaoAccount struct {
		Email           string `json:"email"`
		IsEmailValid    bool   `json:"is_email_valid"`
		IsEmailVerified bool   `json:"is_email_verified"`
	} `json:"kakao_account"`
}

// NewKakaoProvider creates a Kakao provider for the given REST app key.
func NewKakaoProvider(appKey string, opts ...Option) *KakaoProvider {
	o := newOptions(kakaoAuthURL, kakaoTokenURL, kakaoProfileURL, opts)
	return &KakaoProvider{
		config: oauth2.Config{
			ClientID: appKey,
			Endpoint: oauth2.Endpoint{
				AuthURL:   o.authURL,
				TokenURL:  o.tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: o.profileURL,
		opts:       o,
	}
}

// Type returns the provider type.
func (p *KakaoProvider) Type() string {
	return "kakao"
}

// AuthURL generates the authorization URL.
func (p *KakaoProvider) AuthURL(state, redirectURI string) string {
	cfg := p.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens. Kakao ignores state.
func (p *KakaoProvider) ExchangeCode(ctx context.Context, code, _ string, redirectURI string) (*oauth2.Token, error) {
	cfg := p.config
	cfg.RedirectURL = redirectURI
	return exchange(ctx, cfg, p.opts.httpClient, code)
}

// UserInfo fetches and normalizes the Kakao profile.
func (p *KakaoProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*NormalizedUser, error) {
	var user kakaoUserResponse
	if err := fetchProfile(ctx, p.opts.httpClient, p.profileURL, token, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, &UpstreamError{Stage: "profile", Err: fmt.Errorf("kakao profile has no id")}
	}
	return normalizeKakao(&user), nil
}

func normalizeKakao(user *kakaoUserResponse) *NormalizedUser {
	id := strconv.FormatInt(user.ID, 10)

	// Unverified or expired addresses can be claimed by anyone, so they
	// get the placeholder like a missing one.
	account := user.KakaoAccount
	email := account.Email
	hasEmail := email != "" && account.IsEmailValid && account.IsEmailVerified
	if !hasEmail {
		email = emailutil.Placeholder("kakao", id)
	}

	name := user.Properties.Nickname
	if name == "" {
		name = "카카오사용자" + id
	}

	return &NormalizedUser{
		UID:         "kakao_" + id,
		ID:          user.ID,
		Email:       email,
		DisplayName: name,
		PhotoURL:    optionalString(user.Properties.ProfileImage),
		Provider:    "kakao",
		HasEmail:    hasEmail,
	}
}
