package mock

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Signer issues ES256-signed ID tokens.
type Signer struct {
	KeyID string
	key   *ecdsa.PrivateKey
}

// NewSigner generates a fresh P-256 key identified by keyID.
func NewSigner(keyID string) (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &Signer{KeyID: keyID, key: key}, nil
}

// JWKS returns the public half of the key as a key set.
func (s *Signer) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.key.PublicKey,
		KeyID:     s.KeyID,
		Algorithm: string(jose.ES256),
		Use:       "sig",
	}}}
}

// Sign returns claims as a compact JWS.
func (s *Signer) Sign(claims map[string]interface{}) (string, error) {
	return s.SignAs(s.KeyID, claims)
}

// SignAs signs with the same key but announces kid in the header, for
// exercising key rotation.
func (s *Signer) SignAs(kid string, claims map[string]interface{}) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.ES256,
		Key:       jose.JSONWebKey{Key: s.key, KeyID: kid},
	}, nil)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	obj, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return obj.CompactSerialize()
}

// AtHash returns the OIDC at_hash claim for an ES256-signed token: the
// left half of SHA-256(accessToken), Base64URL-encoded.
func AtHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
