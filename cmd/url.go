package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
	"cupsoauth/internal/oauth"
	pkgoauth "cupsoauth/pkg/oauth"
)

func newURLCmd() *cobra.Command {
	var clientID string
	var pkce bool

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print an authorization URL without running the flow",
		Long: `Build the authorization endpoint URL for the configured server, resource
and scopes. Nothing is cached and no listener is started, which makes this
useful for inspecting what the browser would be sent to.

The client ID defaults to the cached registration. With --pkce a fresh code
verifier is generated and printed on stderr.

Examples:
  cups-oauth url -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth url --client-id my-client --pkce`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			authURI, md, err := s.metadata(cmd.Context())
			if err != nil {
				return err
			}

			redirectURI := s.cfg.RedirectURI
			if redirectURI == "" {
				redirectURI = oauth.DefaultRedirectURI
			}
			if clientID == "" {
				if clientID, _, err = s.client.CopyClientID(authURI, redirectURI); err != nil {
					return s.wrap(err)
				}
				if clientID == "" {
					return &cli.AuthRequiredError{AuthURI: authURI}
				}
			}

			state, err := pkgoauth.GenerateState()
			if err != nil {
				return err
			}
			scopes := s.cfg.Scopes
			if scopes == "" {
				scopes = md.DefaultScope()
			}
			req := pkgoauth.AuthorizationRequest{
				ClientID:    clientID,
				RedirectURI: redirectURI,
				Resource:    s.cfg.ResourceURI,
				Scope:       scopes,
				State:       state,
			}
			if pkce && md.SupportsS256() {
				challenge, err := pkgoauth.GeneratePKCE()
				if err != nil {
					return err
				}
				req.CodeVerifier = challenge.CodeVerifier
				fmt.Fprintf(cmd.ErrOrStderr(), "code_verifier: %s\n", challenge.CodeVerifier)
			}

			u, err := pkgoauth.AuthorizationURL(md, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out(), u)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Client ID to use instead of the cached registration")
	cmd.Flags().BoolVar(&pkce, "pkce", false, "Add a PKCE S256 challenge when the server supports it")
	return cmd
}
