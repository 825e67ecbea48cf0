// Package credstore persists OAuth credentials and cached documents for the
// CUPS OAuth client.
//
// Values live in one file per (authorization server, secondary URI, kind):
//
//	<dir>/<sha256(host:port of auth URI)>[+<sha256(host:port of secondary URI)>].<kind>
//
// The secondary URI is the printer resource for tokens, nonces and verifiers,
// and the redirect URI for client registrations. Metadata and JWKS documents
// are keyed by the authorization server alone.
package credstore
