package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
	"cupsoauth/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

var rootFlags cli.CommandFlags

// rootCmd represents the base command for the cups-oauth application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cups-oauth",
	Short: "OAuth 2.0 and OpenID Connect client for CUPS printers",
	Long: `cups-oauth obtains, validates, caches and refreshes bearer tokens for
OAuth-protected printers.

It discovers the authorization server, registers itself dynamically when
needed, runs the browser flow on a loopback redirect with PKCE (or the device
flow on headless systems), validates ID tokens against the server's JWKS and
keeps everything in a per-user credential cache.

Examples:
  cups-oauth authorize -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth token -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth status`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// Interrupts cancel the command's context so the callback listener and the
// device polling loop shut down cleanly.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "cups-oauth version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// printConfigError prints the detailed report for configuration errors,
// which are otherwise reduced to a single line by cobra.
func printConfigError(cmd *cobra.Command, err error) {
	var collection config.ConfigurationErrorCollection
	if errors.As(err, &collection) {
		fmt.Fprintln(cmd.ErrOrStderr(), collection.GetDetailedReport())
		return
	}
	var ce config.ConfigurationError
	if errors.As(err, &ce) {
		fmt.Fprintln(cmd.ErrOrStderr(), ce.DetailedError())
	}
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &rootFlags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newAuthorizeCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newExchangeCmd())
	rootCmd.AddCommand(newDeviceCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newMetadataCmd())
	rootCmd.AddCommand(newJWKSCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newUserIDCmd())
	rootCmd.AddCommand(newURLCmd())
	rootCmd.AddCommand(newRandomCmd())
	rootCmd.AddCommand(newStatusCmd())
}
