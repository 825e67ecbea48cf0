package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgoauth "cupsoauth/pkg/oauth"
)

// newVersionCmd creates the Cobra command for displaying the application version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cups-oauth",
		Long: `All software has versions. This is cups-oauth's.

The software_id sent during dynamic client registration is printed as well.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cups-oauth version %s\n", rootCmd.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "software_id %s (%s %s)\n",
				pkgoauth.SoftwareID(), pkgoauth.SoftwareName, pkgoauth.SoftwareVersion)
		},
	}
}
