package cmd

import (
	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
)

func newMetadataCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Show the authorization server metadata",
		Long: `Discover and print the authorization server metadata (RFC 8414 or
OpenID Connect discovery). The cached copy is used while it is fresh.

Examples:
  cups-oauth metadata -a https://auth.example.com
  cups-oauth metadata -a https://auth.example.com -o yaml`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateOutputFormat(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			_, md, err := s.metadata(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteDocument(s.out(), md.Raw, cli.OutputFormat(output))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatJSON), "Output format (json, yaml)")
	return cmd
}

func newJWKSCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Show the authorization server signing keys",
		Long: `Fetch and print the JSON Web Key Set used to verify ID tokens.

Examples:
  cups-oauth jwks -a https://auth.example.com`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateOutputFormat(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			authURI, md, err := s.metadata(cmd.Context())
			if err != nil {
				return err
			}
			jwks, err := s.client.GetJWKS(cmd.Context(), authURI, md)
			if err != nil {
				return s.wrap(err)
			}
			return cli.WriteValue(s.out(), jwks, cli.OutputFormat(output))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatJSON), "Output format (json, yaml)")
	return cmd
}
