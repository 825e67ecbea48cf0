package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cupsoauth/internal/oauth"
)

func newRegisterCmd() *cobra.Command {
	var logoURI, tosURI string
	var force bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this client with the authorization server",
		Long: `Return the client ID for the authorization server, registering a new
client (RFC 7591) when none is cached or when --force is given.

Examples:
  cups-oauth register -a https://auth.example.com
  cups-oauth register -a https://auth.example.com --logo-uri https://example.com/logo.png --force`,
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

			if !force {
				clientID, _, err := s.client.CopyClientID(authURI, redirectURI)
				if err != nil {
					return s.wrap(err)
				}
				if clientID != "" {
					fmt.Fprintln(s.out(), clientID)
					return nil
				}
			}

			if !cmd.Flags().Changed("logo-uri") {
				logoURI = s.cfg.LogoURI
			}
			if !cmd.Flags().Changed("tos-uri") {
				tosURI = s.cfg.TOSURI
			}

			clientID, err := s.client.GetClientID(cmd.Context(), authURI, md, redirectURI, logoURI, tosURI)
			if err != nil {
				return s.wrap(err)
			}
			s.infof("Registered client with %s\n", authURI)
			fmt.Fprintln(s.out(), clientID)
			return nil
		},
	}

	cmd.Flags().StringVar(&logoURI, "logo-uri", "", "Logo URI sent with the registration")
	cmd.Flags().StringVar(&tosURI, "tos-uri", "", "Terms-of-service URI sent with the registration")
	cmd.Flags().BoolVar(&force, "force", false, "Register a new client even when one is cached")
	return cmd
}
