// Package oauth provides the OAuth 2.0 and OpenID Connect primitives shared by
// the credential client and the command line tools.
//
// # Core Components
//
//   - Metadata: authorization server metadata (RFC 8414) with the raw document
//   - Token and TokenResponse: token endpoint payloads and expiry checks
//   - GrantType: authorization code, device code (RFC 8628) and refresh grants
//   - PKCE and random strings: Base64URL values from crypto/rand (RFC 7636)
//   - AuthorizationURL: authorization request construction
//   - SoftwareID: the RFC 7591 software_id of this client
//   - IDTokenClaims: OIDC ID token claims decoded with go-jose
//   - AuthChallenge: Bearer challenges parsed from WWW-Authenticate headers
//
// # Usage
//
//	md, err := oauth.ParseMetadata(body)
//	state, err := oauth.GenerateState()
//	u, err := oauth.AuthorizationURL(md, oauth.AuthorizationRequest{
//		ClientID:    clientID,
//		RedirectURI: "http://127.0.0.1:10000/",
//		State:       state,
//	})
package oauth
