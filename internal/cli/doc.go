// Package cli provides the presentation layer shared by the cups-oauth
// commands.
//
// # Flags and configuration
//
// CommandFlags holds the persistent flags. Resolve merges them over
// config.yaml so that an explicitly set flag always wins.
//
// # Errors and exit codes
//
// FromOAuthError turns errors from the oauth package into AuthFailedError,
// AuthExpiredError or a classified ConnectionError. The root command maps
// those to exit codes:
//   - 0: success
//   - 1: general error
//   - 2: authentication required (AuthRequiredError, AuthExpiredError)
//   - 3: authentication failed (AuthFailedError)
//
// # Output
//
// WriteDocument prints raw JSON documents (metadata, JWKS) as indented JSON
// or YAML. RenderStatusTable prints the credential cache with go-pretty, and
// Progress wraps a spinner for the blocking browser and device flows.
package cli
