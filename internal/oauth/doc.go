// Package oauth implements the OAuth 2.0 and OpenID Connect client used by
// CUPS to obtain bearer tokens for protected printers.
//
// # Components
//
//   - Client: entry point holding the credential store, HTTP client and browser
//   - GetMetadata / GetJWKS: RFC 8414 discovery and JWKS retrieval with a
//     time-based on-disk cache and same-origin redirects only
//   - GetClientID: RFC 7591 dynamic client registration
//   - GetAuthorizationCode: RFC 8252 loopback redirect flow with PKCE (RFC 7636)
//   - GetTokens: token endpoint requests for the authorization code, device
//     code (RFC 8628) and refresh token grants
//   - ValidateIDToken: nonce, JWS signature and at_hash checks on ID tokens
//   - SaveTokens / CopyAccessToken / ClearTokens: token persistence helpers
//
// # Usage
//
//	store := credstore.New(dir)
//	client := oauth.NewClient(store)
//
//	md, err := client.GetMetadata(ctx, authURI)
//	code, err := client.GetAuthorizationCode(ctx, authURI, md, printerURI, "", "")
//	tokens, err := client.GetTokens(ctx, authURI, md, printerURI, code, pkgoauth.GrantAuthorizationCode, "")
//
// # Errors
//
// Every operation returns *Error values whose Kind can be tested with
// errors.Is against ErrConfiguration, ErrProtocol, ErrValidation, ErrResource,
// ErrTimeout and ErrNetwork.
//
// # Security
//
// Secrets (tokens, codes, verifiers, client secrets) are never logged. Writes
// to the credential store emit SECURITY_AUDIT log entries naming only the kind
// and the authorization server.
package oauth
