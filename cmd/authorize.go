package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cupsoauth/internal/oauth"
	pkgoauth "cupsoauth/pkg/oauth"
)

type authorizeOptions struct {
	wwwAuthenticate string
	noBrowser       bool
	printToken      bool
}

func newAuthorizeCmd() *cobra.Command {
	opts := &authorizeOptions{}

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Authorize with the browser and cache the resulting tokens",
		Long: `Run the authorization code flow for a printer.

The authorization server metadata is discovered, a client is registered if
none is cached, and the default browser is sent to the authorization endpoint.
The redirect is received on a loopback listener; the code is then exchanged
for tokens, the ID token (if any) is validated and everything is cached.

The authorization server and scope can be taken from a printer's
WWW-Authenticate challenge instead of --auth-uri and --scopes.

Examples:
  cups-oauth authorize -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth authorize --www-authenticate 'Bearer realm="https://auth.example.com", scope="print"'
  cups-oauth authorize --no-browser    # print the URL instead of opening it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorize(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.wwwAuthenticate, "www-authenticate", "", "WWW-Authenticate header returned by the printer")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().BoolVar(&opts.printToken, "print-token", false, "Print the access token to stdout when done")
	return cmd
}

func runAuthorize(cmd *cobra.Command, opts *authorizeOptions) error {
	var clientOpts []oauth.ClientOption
	if opts.noBrowser {
		clientOpts = append(clientOpts, oauth.WithBrowser(oauth.BrowserFunc(func(u string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in a browser to continue:\n\n  %s\n\n", u)
			return nil
		})))
	}

	s, err := newSession(cmd, clientOpts...)
	if err != nil {
		return err
	}

	if opts.wwwAuthenticate != "" {
		challenge, err := pkgoauth.ParseWWWAuthenticate(opts.wwwAuthenticate)
		if err != nil {
			return fmt.Errorf("invalid --www-authenticate: %w", err)
		}
		if !challenge.IsBearer() {
			return fmt.Errorf("printer offers %s authentication, not Bearer", challenge.Scheme)
		}
		if s.cfg.AuthURI == "" {
			if challenge.AuthorizationServer == "" {
				return fmt.Errorf("challenge realm %q is not an https authorization server", challenge.Realm)
			}
			s.cfg.AuthURI = challenge.AuthorizationServer
		}
		if s.cfg.Scopes == "" {
			s.cfg.Scopes = challenge.Scope
		}
	}

	ctx := cmd.Context()
	authURI, md, err := s.metadata(ctx)
	if err != nil {
		return err
	}

	p := s.progress("Waiting for authorization in your browser...")
	code, err := s.client.GetAuthorizationCode(ctx, authURI, md, s.cfg.ResourceURI, s.cfg.Scopes, s.cfg.RedirectURI)
	if err != nil {
		p.Fail("Authorization failed")
		return s.wrap(err)
	}

	p.Update("Exchanging authorization code...")
	result, err := s.client.GetTokens(ctx, authURI, md, s.cfg.ResourceURI, code, pkgoauth.GrantAuthorizationCode, s.cfg.RedirectURI)
	if err != nil {
		p.Fail("Token exchange failed")
		return s.wrap(err)
	}
	p.Success("Authorized")

	printTokenSummary(s, result)
	if opts.printToken {
		fmt.Fprintln(s.out(), result.AccessToken)
	}
	return nil
}

// printTokenSummary reports who is logged in and for how long, without
// revealing any token.
func printTokenSummary(s *session, result *oauth.TokenResult) {
	if name := result.Claims.DisplayName(); name != "" {
		s.infof("  User:     %s\n", name)
	}
	if result.Expires.IsZero() {
		s.infof("  Expires:  never\n")
	} else {
		s.infof("  Expires:  %s (in %s)\n", result.Expires.Local().Format(time.RFC1123),
			time.Until(result.Expires).Round(time.Second))
	}
	if result.RefreshToken != "" {
		s.infof("  Refresh:  available\n")
	}
}
