package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	pkgoauth "cupsoauth/pkg/oauth"
)

// defaultRandomBytes matches the size of generated state and nonce values.
const defaultRandomBytes = 32

func newRandomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "random [bytes]",
		Short: "Print a random Base64URL string",
		Long: `Print the given number of cryptographically random bytes (default 32)
encoded as Base64URL without padding, as used for state, nonce and PKCE
code verifiers.

Examples:
  cups-oauth random
  cups-oauth random 64`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := defaultRandomBytes
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 || v > 1024 {
					return fmt.Errorf("invalid byte count %q: must be between 1 and 1024", args[0])
				}
				n = v
			}
			s, err := pkgoauth.MakeBase64Random(n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
