package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
	"cupsoauth/internal/oauth"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

func newTokenCmd() *cobra.Command {
	var noRefresh bool
	var output string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the cached access token",
		Long: `Print the cached access token for the authorization server and resource.

A token that is expired, or expires within the next 30 seconds, is refreshed
automatically when a refresh token is cached. Exits with code 2 when no usable
token is available.

With --output the token is written as an OAuth 2.0 token document
(access_token, token_type, refresh_token, expiry).

Examples:
  cups-oauth token -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth token --no-refresh
  cups-oauth token -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateTokenOutput(output); err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			authURI, err := s.authURI()
			if err != nil {
				return err
			}
			resourceURI := s.cfg.ResourceURI

			access, expires, err := s.client.CopyAccessToken(authURI, resourceURI)
			if err != nil {
				return s.wrap(err)
			}
			refresh, err := s.client.CopyRefreshToken(authURI, resourceURI)
			if err != nil {
				return s.wrap(err)
			}
			cached := &pkgoauth.Token{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}

			if access != "" && (noRefresh || refresh == "" || !cached.IsExpired()) {
				if cached.IDToken, err = s.client.CopyIDToken(authURI, resourceURI); err != nil {
					return s.wrap(err)
				}
				return writeToken(s, cached, output)
			}
			if refresh == "" || noRefresh {
				if !expires.IsZero() {
					return &cli.AuthExpiredError{AuthURI: authURI}
				}
				return &cli.AuthRequiredError{AuthURI: authURI}
			}

			_, md, err := s.metadata(cmd.Context())
			if err == nil {
				var result *oauth.TokenResult
				if result, err = refreshTokens(s, md); err == nil {
					return writeToken(s, result.Token(), output)
				}
			}
			if access == "" {
				return err
			}
			// Still valid for a few seconds; hand it out rather than failing.
			logging.Warn("Token", "Refresh failed, using the cached token until it expires: %v", err)
			if cached.IDToken, err = s.client.CopyIDToken(authURI, resourceURI); err != nil {
				return s.wrap(err)
			}
			return writeToken(s, cached, output)
		},
	}

	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Do not refresh an expired token")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write a token document instead of the bare token (json|yaml)")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the cached tokens",
		Long: `Exchange the cached refresh token for a new access token.

Examples:
  cups-oauth refresh -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth refresh -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateTokenOutput(output); err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			authURI, md, err := s.metadata(cmd.Context())
			if err != nil {
				return err
			}

			refresh, err := s.client.CopyRefreshToken(authURI, s.cfg.ResourceURI)
			if err != nil {
				return s.wrap(err)
			}
			if refresh == "" {
				return &cli.AuthRequiredError{AuthURI: authURI}
			}

			result, err := refreshTokens(s, md)
			if err != nil {
				return err
			}
			s.infof("Tokens refreshed\n")
			printTokenSummary(s, result)
			if output != "" {
				return writeToken(s, result.Token(), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the new tokens as a token document (json|yaml)")
	return cmd
}

func refreshTokens(s *session, md *pkgoauth.Metadata) (*oauth.TokenResult, error) {
	result, err := s.client.RefreshTokens(s.cmd.Context(), s.cfg.AuthURI, md, s.cfg.ResourceURI)
	if err != nil {
		return nil, s.wrap(err)
	}
	return result, nil
}

func validateTokenOutput(output string) error {
	if output == "" {
		return nil
	}
	return cli.ValidateOutputFormat(output)
}

// writeToken prints the bare access token, or with an output format the
// whole token in golang.org/x/oauth2 form.
func writeToken(s *session, tok *pkgoauth.Token, output string) error {
	if output == "" {
		fmt.Fprintln(s.out(), tok.AccessToken)
		return nil
	}
	return cli.WriteValue(s.out(), tok.ToOAuth2Token(), cli.OutputFormat(output))
}
