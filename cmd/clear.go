package cmd

import (
	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var forgetClient bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached tokens",
		Long: `Remove the cached access, ID and refresh tokens for the authorization
server and resource. With --forget-client the dynamic client registration is
removed as well, so the next authorization registers a new client.

Examples:
  cups-oauth clear -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth clear -a https://auth.example.com --forget-client`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			authURI, err := s.authURI()
			if err != nil {
				return err
			}

			if err := s.client.ClearTokens(authURI, s.cfg.ResourceURI); err != nil {
				return s.wrap(err)
			}
			if forgetClient {
				if err := s.client.SaveClientData(authURI, s.cfg.RedirectURI, "", ""); err != nil {
					return s.wrap(err)
				}
			}
			s.infof("Cleared cached tokens for %s\n", authURI)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forgetClient, "forget-client", false, "Also remove the cached client registration")
	return cmd
}
