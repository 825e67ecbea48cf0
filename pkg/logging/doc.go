// Package logging provides subsystem-tagged structured logging for cups-oauth
// on top of Go's standard slog package.
//
// # Log Levels
//   - Debug: protocol details (endpoints tried, cache decisions, flow state transitions)
//   - Info: successful operations (tokens stored, client registered)
//   - Warn: recoverable problems (state mismatch, AS error responses)
//   - Error: failures surfaced to the caller
//
// Every entry carries a "subsystem" attribute. The subsystems used by this
// repository are:
//
//   - CredStore: on-disk credential cache
//   - Metadata: authorization server metadata and JWKS cache
//   - Registrar: dynamic client registration
//   - Authorize: loopback authorization flow
//   - Token: token endpoint exchanges
//   - IDToken: ID token validation
//   - Config: configuration loading
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Metadata", "Fetched metadata for %s", authURI)
//	logging.Error("Token", err, "Token exchange failed")
//
// JSON output is available for log shippers:
//
//	logging.InitWithFormat(logging.LevelDebug, logging.FormatJSON, os.Stderr)
//
// # Audit Logging
//
// Audit emits SECURITY_AUDIT entries for every credential write or delete:
//
//	logging.Audit("token_stored", slog.String("auth_uri", authURI))
//
// Token values, authorization codes, PKCE verifiers and client secrets are
// never logged.
package logging
