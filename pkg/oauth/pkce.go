package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes encode to 43 characters, the RFC 7636 minimum.
	pkceVerifierBytes = 32

	// stateBytes is the number of random bytes for the state and nonce parameters.
	stateBytes = 32
)

// MakeBase64Random returns n crypto-random bytes encoded as Base64URL without padding.
func MakeBase64Random(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid random length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GeneratePKCE generates a new PKCE code verifier and its S256 challenge.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, err := MakeBase64Random(pkceVerifierBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       S256Challenge(verifier),
		CodeChallengeMethod: "S256",
	}, nil
}

// S256Challenge returns Base64URL(SHA-256(verifier)).
func S256Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// GenerateState generates a random state parameter for OAuth.
// The state links the authorization response back to the original request.
func GenerateState() (string, error) {
	return MakeBase64Random(stateBytes)
}

// GenerateNonce generates a random nonce for OIDC ID token binding.
func GenerateNonce() (string, error) {
	return MakeBase64Random(stateBytes)
}

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
type PKCEChallenge struct {
	// CodeVerifier is kept secret and presented only at the token endpoint.
	CodeVerifier string

	// CodeChallenge is the S256 hash of the verifier, sent in the authorization request.
	CodeChallenge string

	CodeChallengeMethod string
}
