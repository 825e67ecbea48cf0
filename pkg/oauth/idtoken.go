package oauth

import (
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// SignatureAlgorithms is the asymmetric JOSE algorithm set accepted for ID tokens.
var SignatureAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.EdDSA,
}

// IDTokenClaims holds the identity claims carried by an OIDC ID token.
type IDTokenClaims struct {
	Issuer            string           `json:"iss,omitempty"`
	Subject           string           `json:"sub,omitempty"`
	Audience          jwt.Audience     `json:"aud,omitempty"`
	Expiry            *jwt.NumericDate `json:"exp,omitempty"`
	IssuedAt          *jwt.NumericDate `json:"iat,omitempty"`
	Nonce             string           `json:"nonce,omitempty"`
	AtHash            string           `json:"at_hash,omitempty"`
	Email             string           `json:"email,omitempty"`
	Name              string           `json:"name,omitempty"`
	PreferredUsername string           `json:"preferred_username,omitempty"`
}

// DisplayName returns the most human-friendly identifier available.
func (c *IDTokenClaims) DisplayName() string {
	switch {
	case c == nil:
		return ""
	case c.Email != "":
		return c.Email
	case c.PreferredUsername != "":
		return c.PreferredUsername
	case c.Name != "":
		return c.Name
	default:
		return c.Subject
	}
}

// ParseIDTokenClaims decodes the claims of a compact JWS without verifying
// its signature. Callers that need trust must verify separately.
func ParseIDTokenClaims(idToken string) (*IDTokenClaims, error) {
	tok, err := jwt.ParseSigned(idToken, SignatureAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ID token: %w", err)
	}
	var claims IDTokenClaims
	if err := tok.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode ID token claims: %w", err)
	}
	return &claims, nil
}
