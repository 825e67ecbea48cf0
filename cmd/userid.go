package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
	pkgoauth "cupsoauth/pkg/oauth"
)

func newUserIDCmd() *cobra.Command {
	var output string
	var validate bool

	cmd := &cobra.Command{
		Use:   "userid",
		Short: "Show the identity from the cached ID token",
		Long: `Print the claims of the cached ID token.

By default the claims are decoded from the cache as-is; --validate verifies
the token signature against the server's JWKS first. Without --output only the
display name (email, username, name or subject) is printed.

Examples:
  cups-oauth userid -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth userid --validate -o json`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return nil
			}
			return cli.ValidateOutputFormat(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			authURI, err := s.authURI()
			if err != nil {
				return err
			}

			var claims *pkgoauth.IDTokenClaims
			if validate {
				idToken, err := s.client.CopyIDToken(authURI, s.cfg.ResourceURI)
				if err != nil {
					return s.wrap(err)
				}
				if idToken == "" {
					return &cli.AuthRequiredError{AuthURI: authURI}
				}
				_, md, err := s.metadata(cmd.Context())
				if err != nil {
					return err
				}
				if claims, err = s.client.GetUserID(cmd.Context(), authURI, md, s.cfg.ResourceURI, idToken); err != nil {
					return s.wrap(err)
				}
			} else {
				if claims, err = s.client.CopyUserID(authURI, s.cfg.ResourceURI); err != nil {
					return s.wrap(err)
				}
				if claims == nil {
					return &cli.AuthRequiredError{AuthURI: authURI}
				}
			}

			if output == "" {
				fmt.Fprintln(s.out(), claims.DisplayName())
				return nil
			}
			return cli.WriteValue(s.out(), claims, cli.OutputFormat(output))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Print all claims (json, yaml)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Verify the ID token signature before printing")
	return cmd
}
