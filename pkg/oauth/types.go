package oauth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultExpiryMargin is the default margin when checking token expiry.
// This accounts for clock skew and network latency.
const DefaultExpiryMargin = 30 * time.Second

// MaxDocumentSize caps every JSON document read from an authorization server.
const MaxDocumentSize = 64 * 1024

// Metadata represents OAuth 2.0 Authorization Server Metadata as defined in RFC 8414.
//
// Absent keys decode to their zero value. Raw holds the exact bytes served by
// the authorization server so caches can persist the document unchanged.
type Metadata struct {
	// Issuer is the authorization server's issuer identifier.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint.
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string `json:"token_endpoint,omitempty"`

	// DeviceAuthorizationEndpoint is the RFC 8628 device authorization endpoint.
	DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint,omitempty"`

	// UserinfoEndpoint is the URL of the userinfo endpoint (OIDC).
	UserinfoEndpoint string `json:"userinfo_endpoint,omitempty"`

	// JwksURI is the URL of the JSON Web Key Set.
	JwksURI string `json:"jwks_uri,omitempty"`

	// RegistrationEndpoint is the URL for dynamic client registration.
	RegistrationEndpoint string `json:"registration_endpoint,omitempty"`

	// ScopesSupported lists the OAuth 2.0 scope values supported.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// ResponseTypesSupported lists the response_type values supported.
	ResponseTypesSupported []string `json:"response_types_supported,omitempty"`

	// GrantTypesSupported lists the grant types supported.
	GrantTypesSupported []string `json:"grant_types_supported,omitempty"`

	// TokenEndpointAuthMethodsSupported lists the client authentication methods.
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`

	// CodeChallengeMethodsSupported lists the PKCE code challenge methods.
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`

	// IDTokenSigningAlgValuesSupported lists the JWS algorithms used for ID tokens (OIDC).
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`

	Raw []byte `json:"-"`
}

// ParseMetadata decodes an RFC 8414 metadata document and keeps the raw bytes.
func ParseMetadata(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty metadata document")
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	md.Raw = append([]byte(nil), data...)
	return &md, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// SupportsS256 reports whether the server advertises the S256 PKCE method.
// Unlike OAuth 2.1 discovery helpers, an empty list means no PKCE.
func (m *Metadata) SupportsS256() bool {
	return m != nil && contains(m.CodeChallengeMethodsSupported, "S256")
}

// SupportsOpenID reports whether "openid" is one of the supported scopes.
func (m *Metadata) SupportsOpenID() bool {
	return m != nil && contains(m.ScopesSupported, "openid")
}

// SupportsResponseType reports whether the given response_type is advertised.
func (m *Metadata) SupportsResponseType(responseType string) bool {
	return m != nil && contains(m.ResponseTypesSupported, responseType)
}

// SupportsGrantType reports whether the given grant type is advertised.
func (m *Metadata) SupportsGrantType(grant GrantType) bool {
	return m != nil && contains(m.GrantTypesSupported, string(grant))
}

// DefaultScope returns the space-joined list of supported scopes.
func (m *Metadata) DefaultScope() string {
	if m == nil {
		return ""
	}
	return strings.Join(m.ScopesSupported, " ")
}

// TokenResponse is the JSON body returned by a token or device authorization endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	IDToken          string `json:"id_token,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Token represents an OAuth access token with associated metadata.
type Token struct {
	// AccessToken is the bearer token used for authorization.
	AccessToken string `json:"access_token"`

	// RefreshToken is used to obtain new access tokens (optional).
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the absolute expiration time. Zero means no expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// IDToken is the OIDC ID token (if available).
	IDToken string `json:"id_token,omitempty"`
}

// IsExpiredAt reports whether the token is expired at the given instant,
// taking the margin into account.
func (t *Token) IsExpiredAt(now time.Time, margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(margin).After(t.ExpiresAt)
}

// IsExpired checks if the token has expired.
func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now(), DefaultExpiryMargin)
}

// ToOAuth2Token converts the Token to an oauth2.Token for compatibility with golang.org/x/oauth2.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}

	if t.IDToken != "" {
		token = token.WithExtra(map[string]interface{}{
			"id_token": t.IDToken,
		})
	}

	return token
}
