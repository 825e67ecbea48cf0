package oauth

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrMissingEndpoint is returned when the metadata lacks an endpoint required
// by the requested operation.
var ErrMissingEndpoint = errors.New("endpoint not advertised by authorization server")

// ResponseTypeCodeIDToken is the hybrid OIDC response type preferred when advertised.
const ResponseTypeCodeIDToken = "code id_token"

// AuthorizationRequest holds the per-attempt parameters of an authorization request.
// Empty optional fields are omitted from the URL.
type AuthorizationRequest struct {
	ClientID     string
	RedirectURI  string
	Resource     string
	Scope        string
	State        string
	Nonce        string
	CodeVerifier string
}

// AuthorizationURL builds the authorization endpoint URL for req.
//
// response_type is "code id_token" when the server advertises it and "code"
// otherwise. A code_challenge is only added when CodeVerifier is set.
func AuthorizationURL(md *Metadata, req AuthorizationRequest) (string, error) {
	if md == nil || md.AuthorizationEndpoint == "" {
		return "", fmt.Errorf("authorization_endpoint: %w", ErrMissingEndpoint)
	}
	if req.ClientID == "" {
		return "", fmt.Errorf("client_id is required")
	}
	if req.State == "" {
		return "", fmt.Errorf("state is required")
	}

	u, err := url.Parse(md.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	responseType := "code"
	if md.SupportsResponseType(ResponseTypeCodeIDToken) {
		responseType = ResponseTypeCodeIDToken
	}

	q := u.Query()
	q.Set("response_type", responseType)
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	if req.Resource != "" {
		q.Set("resource", req.Resource)
	}
	if req.Scope != "" {
		q.Set("scope", req.Scope)
	}
	q.Set("state", req.State)
	if req.Nonce != "" {
		q.Set("nonce", req.Nonce)
	}
	if req.CodeVerifier != "" {
		q.Set("code_challenge", S256Challenge(req.CodeVerifier))
		q.Set("code_challenge_method", "S256")
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
