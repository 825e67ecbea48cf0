package oauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/go-jose/go-jose/v4"

	"cupsoauth/internal/credstore"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// atHashLen is the number of SHA-256 bytes compared for at_hash.
const atHashLen = 16

// ValidateIDToken checks idToken against the stored nonce, the authorization
// server's JWKS and, when accessToken is set, the at_hash claim.
//
// A token without a nonce claim passes the nonce check.
func (c *Client) ValidateIDToken(ctx context.Context, authURI string, md *pkgoauth.Metadata, resourceURI, idToken, accessToken string) (*pkgoauth.IDTokenClaims, error) {
	const op = "validate id token"

	claims, err := pkgoauth.ParseIDTokenClaims(idToken)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}

	if claims.Nonce != "" {
		stored, err := c.store.LoadString(authURI, resourceURI, credstore.KindNonce)
		if err != nil {
			return nil, storeError(op, err)
		}
		if stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(claims.Nonce)) != 1 {
			return nil, validationError(op, "nonce mismatch")
		}
	} else {
		logging.Debug("IDToken", "ID token for %s has no nonce claim, skipping nonce check", authURI)
	}

	jwks, err := c.GetJWKS(ctx, authURI, md)
	if err != nil {
		return nil, err
	}
	if err := verifySignature(idToken, jwks); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Description: "signature verification failed", Err: err}
	}

	if accessToken != "" && claims.AtHash != "" {
		if !atHashMatches(claims.AtHash, accessToken) {
			return nil, validationError(op, "at_hash does not match the access token")
		}
	}

	logging.Debug("IDToken", "Validated ID token for subject %q from %s", claims.Subject, authURI)
	return claims, nil
}

// GetUserID validates idToken without an access token and returns its claims.
func (c *Client) GetUserID(ctx context.Context, authURI string, md *pkgoauth.Metadata, resourceURI, idToken string) (*pkgoauth.IDTokenClaims, error) {
	return c.ValidateIDToken(ctx, authURI, md, resourceURI, idToken, "")
}

// verifySignature verifies the compact JWS against the key matching its kid,
// or against every key when there is no kid or no key matches it.
func verifySignature(idToken string, jwks *jose.JSONWebKeySet) error {
	sig, err := jose.ParseSigned(idToken, pkgoauth.SignatureAlgorithms)
	if err != nil {
		return err
	}
	if len(sig.Signatures) != 1 {
		return errUnexpectedSignatures
	}

	keys := jwks.Keys
	if kid := sig.Signatures[0].Header.KeyID; kid != "" {
		if matched := jwks.Key(kid); len(matched) > 0 {
			keys = matched
		}
	}

	for _, key := range keys {
		if key.Use != "" && !strings.EqualFold(key.Use, "sig") {
			continue
		}
		if _, err := sig.Verify(key.Key); err == nil {
			return nil
		}
	}
	return errNoVerifyingKey
}

var (
	errUnexpectedSignatures = errors.New("expected exactly one signature")
	errNoVerifyingKey       = errors.New("no key in the JWKS verifies the token")
)

// atHashMatches compares at_hash with the left half of SHA-256(accessToken).
func atHashMatches(atHash, accessToken string) bool {
	want, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(atHash, "="))
	if err != nil || len(want) < atHashLen {
		return false
	}
	sum := sha256.Sum256([]byte(accessToken))
	return subtle.ConstantTimeCompare(want[:atHashLen], sum[:atHashLen]) == 1
}
