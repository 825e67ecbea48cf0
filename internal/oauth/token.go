package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cupsoauth/internal/credstore"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// TokenResult is the outcome of a successful token request.
type TokenResult struct {
	AccessToken string
	// Expires is the absolute expiry; zero when the server sent no expires_in.
	Expires      time.Time
	IDToken      string
	RefreshToken string
	// Claims are the validated ID token claims, nil without an ID token.
	Claims *pkgoauth.IDTokenClaims
}

// Token converts the result to the shared token representation.
func (r *TokenResult) Token() *pkgoauth.Token {
	return &pkgoauth.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.Expires,
		IDToken:      r.IDToken,
	}
}

// GetTokens presents grantCode to the token endpoint and stores the result for
// (authURI, resourceURI).
//
// When the response carries an ID token it is validated first and any failure
// voids the exchange: nothing is stored. A refresh response without a new
// refresh token keeps the stored one.
func (c *Client) GetTokens(ctx context.Context, authURI string, md *pkgoauth.Metadata, resourceURI, grantCode string, grantType pkgoauth.GrantType, redirectURI string) (*TokenResult, error) {
	const op = "get tokens"

	if md == nil || md.TokenEndpoint == "" {
		return nil, &Error{Kind: KindProtocol, Op: op, Description: "token_endpoint not advertised"}
	}
	if !grantType.Valid() {
		return nil, configError(op, "unsupported grant type %q", grantType)
	}
	if grantCode == "" {
		return nil, configError(op, "empty %s", grantType.ParamName())
	}

	regRedirect := registrationRedirect(redirectURI)

	data := url.Values{}
	data.Set("grant_type", string(grantType))
	data.Set(grantType.ParamName(), grantCode)

	if grantType == pkgoauth.GrantAuthorizationCode {
		exact := redirectURI
		if exact == "" || exact == DefaultRedirectURI {
			stored, err := c.store.LoadString(authURI, resourceURI, credstore.KindRedirectURI)
			if err != nil {
				return nil, storeError(op, err)
			}
			if stored != "" {
				exact = stored
			} else {
				exact = DefaultRedirectURI
			}
		}
		data.Set("redirect_uri", exact)

		verifier, err := c.store.LoadString(authURI, resourceURI, credstore.KindCodeVerifier)
		if err != nil {
			return nil, storeError(op, err)
		}
		if verifier != "" {
			data.Set("code_verifier", verifier)
		}
	}

	clientID, clientSecret, err := c.CopyClientID(authURI, regRedirect)
	if err != nil {
		return nil, err
	}
	if clientID != "" {
		data.Set("client_id", clientID)
	}
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}

	tr, err := c.doTokenRequest(ctx, op, md.TokenEndpoint, data)
	if err != nil {
		return nil, err
	}

	result := &TokenResult{
		AccessToken:  tr.AccessToken,
		IDToken:      tr.IDToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		result.Expires = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if result.IDToken != "" {
		claims, err := c.ValidateIDToken(ctx, authURI, md, resourceURI, result.IDToken, result.AccessToken)
		if err != nil {
			logging.Warn("Token", "Discarding token response from %s: %v", authURI, err)
			return nil, err
		}
		result.Claims = claims
	}

	if result.RefreshToken == "" && grantType == pkgoauth.GrantRefreshToken {
		result.RefreshToken = grantCode
	}

	if err := c.SaveTokens(authURI, resourceURI, result.AccessToken, result.Expires, result.IDToken, result.RefreshToken); err != nil {
		return nil, err
	}

	logging.Audit("tokens_stored",
		slog.String("auth_uri", authURI),
		slog.String("resource_uri", resourceURI),
		slog.String("grant_type", string(grantType)),
		slog.Bool("has_id_token", result.IDToken != ""),
		slog.Bool("has_refresh_token", result.RefreshToken != ""),
	)
	return result, nil
}

// RefreshTokens exchanges the stored refresh token for new tokens.
func (c *Client) RefreshTokens(ctx context.Context, authURI string, md *pkgoauth.Metadata, resourceURI string) (*TokenResult, error) {
	refresh, err := c.CopyRefreshToken(authURI, resourceURI)
	if err != nil {
		return nil, err
	}
	if refresh == "" {
		return nil, configError("refresh tokens", "no refresh token stored for %s", authURI)
	}
	return c.GetTokens(ctx, authURI, md, resourceURI, refresh, pkgoauth.GrantRefreshToken, "")
}

// doTokenRequest performs a form POST and decodes the token response.
func (c *Client) doTokenRequest(ctx context.Context, op, endpoint string, data url.Values) (*pkgoauth.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, wrapError(KindConfiguration, op, fmt.Errorf("failed to create token request: %w", err))
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, pkgoauth.MaxDocumentSize))
	if err != nil {
		return nil, transportError(op, err)
	}

	var tr pkgoauth.TokenResponse
	jsonErr := json.Unmarshal(body, &tr)

	if tr.Error != "" {
		logging.Debug("Token", "Token endpoint returned error %q (HTTP %d)", tr.Error, resp.StatusCode)
		return nil, protocolError(op, tr.Error, tr.ErrorDescription)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, protocolError(op, "", fmt.Sprintf("token endpoint returned HTTP %d", resp.StatusCode))
	}
	if jsonErr != nil {
		return nil, &Error{Kind: KindProtocol, Op: op, Description: "invalid token response", Err: jsonErr}
	}
	if tr.AccessToken == "" {
		return nil, protocolError(op, "", "token response has no access_token")
	}

	return &tr, nil
}
