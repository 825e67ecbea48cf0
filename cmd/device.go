package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeviceCmd() *cobra.Command {
	var printToken bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Authorize on another device (RFC 8628)",
		Long: `Run the device authorization flow for systems without a browser.

A user code and verification URL are printed; finish the authorization on any
device, meanwhile the token endpoint is polled at the interval the server asks
for.

Examples:
  cups-oauth device -a https://auth.example.com -r ipps://printer.example.com/ipp/print`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			authURI, md, err := s.metadata(ctx)
			if err != nil {
				return err
			}

			da, err := s.client.GetDeviceGrant(ctx, authURI, md, s.cfg.Scopes)
			if err != nil {
				return s.wrap(err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "To authorize, visit:\n\n  %s\n\nand enter the code: %s\n\n", da.VerificationURI, da.UserCode)
			if da.VerificationURIComplete != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Or open directly:\n\n  %s\n\n", da.VerificationURIComplete)
			}

			p := s.progress("Waiting for authorization...")
			result, err := s.client.PollDeviceToken(ctx, authURI, md, s.cfg.ResourceURI, da)
			if err != nil {
				p.Fail("Device authorization failed")
				return s.wrap(err)
			}
			p.Success("Authorized")

			printTokenSummary(s, result)
			if printToken {
				fmt.Fprintln(s.out(), result.AccessToken)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printToken, "print-token", false, "Print the access token to stdout when done")
	return cmd
}
