package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dgellow/ortho-diary/internal/client"
	"github.com/dgellow/ortho-diary/internal/envutil"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/loopback"
	"github.com/dgellow/ortho-diary/internal/session"
)

// Exit codes for scripting.
const (
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable session.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the provider round trip failed.
	ExitCodeAuthFailed = 3
)

const defaultServer = "http://localhost:3001"

var errNotLoggedIn = errors.New("not logged in, run 'ortho-capture login kakao' or 'ortho-capture login naver'")

// options holds the global flags shared by every subcommand.
type options struct {
	server      string
	listen      string
	sessionFile string
	envFile     string
	logLevel    string

	openBrowser func(url string) error
}

func defaultOptions() *options {
	return &options{openBrowser: loopback.OpenBrowser}
}

// setup runs before every subcommand.
func (o *options) setup() error {
	if err := envutil.LoadDotEnv(o.envFile); err != nil {
		return err
	}
	if o.logLevel != "" {
		if err := log.SetLogLevel(o.logLevel); err != nil {
			return err
		}
	}
	if o.server == "" {
		o.server = envutil.FirstNonEmpty("ORTHO_DIARY_SERVER", "VITE_API_URL")
	}
	if o.server == "" {
		o.server = defaultServer
	}
	if o.sessionFile == "" {
		path, err := session.DefaultPath()
		if err != nil {
			return err
		}
		o.sessionFile = path
	}
	return nil
}

func (o *options) store() session.Store {
	return session.NewFileStore(o.sessionFile)
}

func newRootCmd(version string, o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ortho-capture",
		Short: "Capture orthodontic progress photos into your diary",
		Long: `ortho-capture logs in to an ortho-diary server with Kakao, Naver or
Google and saves photos to your treatment diary from the command line.

A login with Kakao or Naver is remembered until you log out. Google
logins last for a single command, pass --google to capture or photos.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			return o.setup()
		},
	}
	cmd.SetVersionTemplate(`{{printf "ortho-capture version %s\n" .Version}}`)

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.server, "server", "", "ortho-diary server URL (default $ORTHO_DIARY_SERVER or "+defaultServer+")")
	flags.StringVar(&o.listen, "listen", loopback.DefaultAddr, "Address of the local login callback listener")
	flags.StringVar(&o.sessionFile, "session-file", "", "Where the login is kept (default in the user config dir)")
	flags.StringVar(&o.envFile, "env-file", ".env", "Environment file with provider client IDs")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level (error, warn, info, debug, trace)")

	cmd.AddCommand(
		newLoginCmd(o),
		newLogoutCmd(o),
		newWhoamiCmd(o),
		newCaptureCmd(o),
		newPhotosCmd(o),
	)
	return cmd
}

func execute(ctx context.Context, version string) int {
	if err := newRootCmd(version, defaultOptions()).ExecuteContext(ctx); err != nil {
		return getExitCode(err)
	}
	return ExitCodeSuccess
}

// getExitCode maps an error to a semantic exit code.
func getExitCode(err error) int {
	if errors.Is(err, errNotLoggedIn) {
		return ExitCodeAuthRequired
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return ExitCodeAuthRequired
	}

	var providerErr *client.ProviderError
	if errors.As(err, &providerErr) ||
		errors.Is(err, client.ErrInvalidState) ||
		errors.Is(err, client.ErrMissingCode) ||
		errors.Is(err, session.ErrInvalidIdentity) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}
