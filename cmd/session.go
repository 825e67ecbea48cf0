package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
	"cupsoauth/internal/config"
	"cupsoauth/internal/credstore"
	"cupsoauth/internal/oauth"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// extraClientOptions are appended to every client built by newSession.
// Tests use it to point the client at a fake authorization server.
var extraClientOptions []oauth.ClientOption

// session bundles what a command needs: the resolved configuration, the
// credential store and an OAuth client on top of it.
type session struct {
	cmd    *cobra.Command
	cfg    config.Config
	client *oauth.Client
}

func newSession(cmd *cobra.Command, opts ...oauth.ClientOption) (*session, error) {
	cfg, err := rootFlags.Resolve(cmd)
	if err != nil {
		printConfigError(cmd, err)
		return nil, err
	}

	logging.InitWithFormat(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	dir := cfg.StoreDir
	if dir == "" {
		if dir, err = credstore.DefaultDir(); err != nil {
			return nil, err
		}
	}
	all := []oauth.ClientOption{
		oauth.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		oauth.WithCallbackTimeout(cfg.CallbackTimeout),
	}
	all = append(all, opts...)
	all = append(all, extraClientOptions...)

	return &session{
		cmd:    cmd,
		cfg:    cfg,
		client: oauth.NewClient(credstore.New(dir), all...),
	}, nil
}

// authURI returns the configured authorization server or an error telling
// the user how to set one.
func (s *session) authURI() (string, error) {
	if s.cfg.AuthURI == "" {
		return "", fmt.Errorf("no authorization server: pass --auth-uri or set authURI in config.yaml")
	}
	return s.cfg.AuthURI, nil
}

func (s *session) metadata(ctx context.Context) (string, *pkgoauth.Metadata, error) {
	authURI, err := s.authURI()
	if err != nil {
		return "", nil, err
	}
	md, err := s.client.GetMetadata(ctx, authURI)
	if err != nil {
		return "", nil, s.wrap(err)
	}
	return authURI, md, nil
}

func (s *session) wrap(err error) error {
	return cli.FromOAuthError(err, s.cfg.AuthURI)
}

// store is the credential cache behind the client.
func (s *session) store() *credstore.Store {
	return s.client.Store()
}

func (s *session) out() io.Writer {
	return s.cmd.OutOrStdout()
}

// infof prints progress to stderr unless --quiet is set, keeping stdout
// for data such as tokens.
func (s *session) infof(format string, args ...interface{}) {
	if rootFlags.Quiet {
		return
	}
	fmt.Fprintf(s.cmd.ErrOrStderr(), format, args...)
}

func (s *session) progress(message string) *cli.Progress {
	return cli.StartProgress(s.cmd.ErrOrStderr(), rootFlags.Quiet, message)
}
