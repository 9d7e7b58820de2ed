package idp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/dgellow/ortho-diary/internal/emailutil"
)

const (
	naverAuthURL    = "https://nid.naver.com/oauth2.0/authorize"
	naverTokenURL   = "https://nid.naver.com/oauth2.0/token"
	naverProfileURL = "https://openapi.naver.com/v1/nid/me"
)

// NaverProvider exchanges Naver authorization codes. Naver requires the
// state issued at login to be echoed on the token request.
type NaverProvider struct {
	config     oauth2.Config
	profileURL string
	opts       options
}

// naverUserResponse represents the /v1/nid/me envelope.
type naverUserResponse struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Nickname     string `json:"nickname"`
		Email        string `json:"email"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
}

// NewNaverProvider creates a Naver provider.
func NewNaverProvider(clientID, clientSecret string, opts ...Option) *NaverProvider {
	o := newOptions(naverAuthURL, naverTokenURL, naverProfileURL, opts)
	return &NaverProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
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
func (p *NaverProvider) Type() string {
	return "naver"
}

// AuthURL generates the authorization URL.
func (p *NaverProvider) AuthURL(state, redirectURI string) string {
	cfg := p.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens.
func (p *NaverProvider) ExchangeCode(ctx context.Context, code, state, redirectURI string) (*oauth2.Token, error) {
	cfg := p.config
	cfg.RedirectURL = redirectURI
	return exchange(ctx, cfg, p.opts.httpClient, code, oauth2.SetAuthURLParam("state", state))
}

// UserInfo fetches and normalizes the Naver profile.
func (p *NaverProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*NormalizedUser, error) {
	var user naverUserResponse
	if err := fetchProfile(ctx, p.opts.httpClient, p.profileURL, token, &user); err != nil {
		return nil, err
	}
	if user.Response.ID == "" {
		return nil, &UpstreamError{Stage: "profile", Err: fmt.Errorf("naver profile has no id (resultcode %s: %s)", user.ResultCode, user.Message)}
	}
	return normalizeNaver(&user), nil
}

func normalizeNaver(user *naverUserResponse) *NormalizedUser {
	profile := user.Response

	email := profile.Email
	hasEmail := email != ""
	if !hasEmail {
		email = emailutil.Placeholder("naver", prefix(profile.ID, 10))
	}

	name := profile.Name
	if name == "" {
		name = profile.Nickname
	}
	if name == "" {
		name = "네이버사용자" + prefix(profile.ID, 8)
	}

	return &NormalizedUser{
		UID:         "naver_" + profile.ID,
		ID:          profile.ID,
		Email:       email,
		DisplayName: name,
		PhotoURL:    optionalString(profile.ProfileImage),
		Provider:    "naver",
		HasEmail:    hasEmail,
	}
}
