package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgellow/ortho-diary/internal/client"
	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/crypto"
	"github.com/dgellow/ortho-diary/internal/googleauth"
	"github.com/dgellow/ortho-diary/internal/idp"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/loopback"
	"github.com/dgellow/ortho-diary/internal/session"
	"github.com/dgellow/ortho-diary/internal/urlutil"
)

const stateTTL = 10 * time.Minute

func newLoginCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login <kakao|naver>",
		Short: "Log in with Kakao or Naver",
		Long: `Log in with Kakao or Naver in the browser.

The provider redirects back to a local listener (see --listen), whose
origin must be registered as a redirect URI with the provider. The code is
exchanged by the ortho-diary server and the resulting login is saved to
the session file.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(config.ProviderKakao), string(config.ProviderNaver)},
		RunE: func(cmd *cobra.Command, args []string) error {
			t := config.ProviderType(args[0])
			if t != config.ProviderKakao && t != config.ProviderNaver {
				return fmt.Errorf("unknown provider %q, use kakao or naver", args[0])
			}

			mgr := session.NewManager(o.store(), nil, nil)
			defer mgr.Close()
			if err := mgr.Start(cmd.Context()); err != nil {
				return err
			}

			identity, err := o.proxyLogin(cmd.Context(), cmd.ErrOrStderr(), t, mgr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", identity.DisplayName, identity.UID)
			return nil
		},
	}
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := session.NewManager(o.store(), nil, nil)
			defer mgr.Close()
			if err := mgr.Start(cmd.Context()); err != nil {
				return err
			}
			if err := mgr.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := o.openSession(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer mgr.Close()

			s := mgr.Current()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:     %s\n", s.ID)
			fmt.Fprintf(out, "Name:   %s\n", s.DisplayName)
			fmt.Fprintf(out, "Email:  %s\n", s.Email)
			fmt.Fprintf(out, "Login:  %s\n", s.Origin)

			profile, err := client.NewJournalClient(o.server, mgr).Profile(cmd.Context())
			if err != nil {
				log.LogWarn("Could not load profile: %v", err)
				return nil
			}
			fmt.Fprintf(out, "Type:   %s\n", profile.UserType)
			return nil
		},
	}
}

// newStateValidator returns a one-off state and the validator that
// accepts it.
func newStateValidator() (string, *crypto.CSRFProtection, error) {
	key, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", nil, err
	}
	csrf := crypto.NewCSRFProtection([]byte(key), stateTTL)
	state, err := csrf.Generate()
	if err != nil {
		return "", nil, err
	}
	return state, &csrf, nil
}

// browserLogin sends the user to authURL and waits for the provider to
// redirect back to srv.
func (o *options) browserLogin(ctx context.Context, stderr io.Writer, srv *loopback.Server, authURL string, handle loopback.Handler) error {
	ctx, cancel := context.WithTimeout(ctx, loopback.CallbackTimeout)
	defer cancel()

	srv.Serve(ctx, handle)
	defer srv.Stop()

	fmt.Fprintf(stderr, "Opening the browser to log in. If it does not open, visit:\n  %s\n", authURL)
	if err := o.openBrowser(authURL); err != nil {
		log.LogWarn("Could not open browser: %v", err)
	}
	return srv.Wait(ctx)
}

// publicProvider builds a provider from the client ID alone. The client
// secret stays on the server, the CLI only builds the auth URL.
func publicProvider(t config.ProviderType) (idp.Provider, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	clientID := cfg.Providers.Get(t).ClientID
	if clientID == "" {
		return nil, fmt.Errorf("%s: %w, set its client ID in the environment", t, idp.ErrNotConfigured)
	}
	if t == config.ProviderNaver {
		return idp.NewNaverProvider(clientID, ""), nil
	}
	return idp.NewKakaoProvider(clientID), nil
}

// proxyLogin runs a Kakao or Naver login through the exchange proxy and
// stores the identity in mgr.
func (o *options) proxyLogin(ctx context.Context, stderr io.Writer, t config.ProviderType, mgr *session.Manager) (*session.ProxyIdentity, error) {
	provider, err := publicProvider(t)
	if err != nil {
		return nil, err
	}

	srv := loopback.New(o.listen)
	origin, err := srv.Listen()
	if err != nil {
		return nil, err
	}
	redirectURI, err := urlutil.CallbackURL(origin, string(t))
	if err != nil {
		srv.Stop()
		return nil, err
	}
	state, validator, err := newStateValidator()
	if err != nil {
		srv.Stop()
		return nil, err
	}

	exchanger := client.NewExchangeClient(o.server, client.WithOrigin(origin))
	callback := client.NewCallback(string(t), exchanger, mgr, validator)

	var identity *session.ProxyIdentity
	err = o.browserLogin(ctx, stderr, srv, provider.AuthURL(state, redirectURI), func(ctx context.Context, p string, query url.Values) error {
		if p != string(t) {
			return fmt.Errorf("unexpected callback for %s", p)
		}
		id, err := callback.Handle(ctx, query)
		if err != nil {
			return err
		}
		identity = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// googleLogin signs in with Google for the lifetime of mgr's process.
func (o *options) googleLogin(ctx context.Context, stderr io.Writer) (*session.Manager, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	provider, err := idp.NewProvider(config.ProviderGoogle, cfg.Providers.Google)
	if err != nil {
		return nil, fmt.Errorf("%w, set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET", err)
	}

	srv := loopback.New(o.listen)
	origin, err := srv.Listen()
	if err != nil {
		return nil, err
	}
	redirectURI, err := urlutil.CallbackURL(origin, string(config.ProviderGoogle))
	if err != nil {
		srv.Stop()
		return nil, err
	}
	state, validator, err := newStateValidator()
	if err != nil {
		srv.Stop()
		return nil, err
	}

	auth := googleauth.New(provider, redirectURI)
	mgr := session.NewManager(o.store(), auth, nil)
	if err := mgr.Start(ctx); err != nil {
		srv.Stop()
		return nil, err
	}

	err = o.browserLogin(ctx, stderr, srv, auth.AuthURL(state), func(ctx context.Context, p string, query url.Values) error {
		if p != string(config.ProviderGoogle) {
			return fmt.Errorf("unexpected callback for %s", p)
		}
		if code := query.Get("error"); code != "" {
			return &client.ProviderError{Code: code, Description: query.Get("error_description")}
		}
		if !validator.Validate(query.Get("state")) {
			return client.ErrInvalidState
		}
		code := query.Get("code")
		if code == "" {
			return client.ErrMissingCode
		}
		_, err := auth.SignInWithCode(ctx, code)
		return err
	})
	if err != nil {
		mgr.Close()
		return nil, err
	}
	return mgr, nil
}

// openSession returns a manager holding a signed-in session. With google
// set the user signs in with Google first, otherwise the saved login is
// used.
func (o *options) openSession(ctx context.Context, stderr io.Writer, google bool) (*session.Manager, error) {
	if google {
		return o.googleLogin(ctx, stderr)
	}

	mgr := session.NewManager(o.store(), nil, nil)
	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	if mgr.Current() == nil {
		mgr.Close()
		return nil, errNotLoggedIn
	}
	return mgr, nil
}
