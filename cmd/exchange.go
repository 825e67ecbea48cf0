package cmd

import (
	"github.com/spf13/cobra"

	pkgoauth "cupsoauth/pkg/oauth"
)

func newExchangeCmd() *cobra.Command {
	var grant string
	var output string

	cmd := &cobra.Command{
		Use:   "exchange VALUE",
		Short: "Present a grant to the token endpoint",
		Long: `Exchange an authorization code, device code or refresh token for tokens.

This is the token request of "authorize" and "device" on its own, for codes
obtained elsewhere, e.g. with a URL made by "cups-oauth url". For the code
grant the redirect URI recorded by the last authorization is used unless
--redirect-uri is given. The PKCE verifier of that authorization is sent
when one is cached.

--grant accepts "code", "device", "refresh" or the grant_type wire value.

Examples:
  cups-oauth exchange -a https://auth.example.com --grant code 4/P7q7W91a-oMsCeLvIaQm6bTrgtp7
  cups-oauth exchange -a https://auth.example.com --grant refresh "$REFRESH" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grantType, err := pkgoauth.ParseGrantType(grant)
			if err != nil {
				return err
			}
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

			var redirectURI string
			if grantType == pkgoauth.GrantAuthorizationCode {
				redirectURI = s.cfg.RedirectURI
			}
			result, err := s.client.GetTokens(cmd.Context(), authURI, md, s.cfg.ResourceURI, args[0], grantType, redirectURI)
			if err != nil {
				return s.wrap(err)
			}

			s.infof("Tokens received\n")
			printTokenSummary(s, result)
			return writeToken(s, result.Token(), output)
		},
	}

	cmd.Flags().StringVarP(&grant, "grant", "g", "code", "Grant type: code, device or refresh")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write a token document instead of the bare token (json|yaml)")
	return cmd
}
