package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

const (
	defaultDeviceInterval = 5 * time.Second
	slowDownIncrement     = 5 * time.Second
)

// GetDeviceGrant starts an RFC 8628 device authorization request.
func (c *Client) GetDeviceGrant(ctx context.Context, authURI string, md *pkgoauth.Metadata, scopes string) (*oauth2.DeviceAuthResponse, error) {
	const op = "get device grant"

	if md == nil || md.DeviceAuthorizationEndpoint == "" {
		return nil, &Error{Kind: KindProtocol, Op: op, Description: "device_authorization_endpoint not advertised"}
	}
	// An absent grant_types_supported says nothing about the device grant.
	if len(md.GrantTypesSupported) > 0 && !md.SupportsGrantType(pkgoauth.GrantDeviceCode) {
		return nil, &Error{Kind: KindProtocol, Op: op, Code: "unsupported_grant_type", Description: "device_code grant not advertised"}
	}

	clientID, _, err := c.CopyClientID(authURI, DefaultRedirectURI)
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		if md.RegistrationEndpoint == "" {
			return nil, configError(op, "no client_id for %s and dynamic registration is not available", authURI)
		}
		if clientID, err = c.GetClientID(ctx, authURI, md, DefaultRedirectURI, "", ""); err != nil {
			return nil, err
		}
	}

	if scopes == "" {
		scopes = md.DefaultScope()
	}

	data := url.Values{}
	data.Set("client_id", clientID)
	if scopes != "" {
		data.Set("scope", scopes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, md.DeviceAuthorizationEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, wrapError(KindConfiguration, op, err)
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

	if resp.StatusCode != http.StatusOK {
		var tr pkgoauth.TokenResponse
		if json.Unmarshal(body, &tr) == nil && tr.Error != "" {
			return nil, protocolError(op, tr.Error, tr.ErrorDescription)
		}
		return nil, protocolError(op, "", fmt.Sprintf("device authorization endpoint returned HTTP %d", resp.StatusCode))
	}

	var da oauth2.DeviceAuthResponse
	if err := json.Unmarshal(body, &da); err != nil {
		return nil, &Error{Kind: KindProtocol, Op: op, Description: "invalid device authorization response", Err: err}
	}
	if da.DeviceCode == "" || da.UserCode == "" || da.VerificationURI == "" {
		return nil, protocolError(op, "", "device authorization response is incomplete")
	}

	logging.Info("Token", "Device authorization started for %s, code expires %s", authURI, da.Expiry.Format(time.RFC3339))
	return &da, nil
}

// PollDeviceToken polls the token endpoint with the device code until the
// user approves, denies or the code expires. authorization_pending keeps
// polling and slow_down adds five seconds to the interval.
func (c *Client) PollDeviceToken(ctx context.Context, authURI string, md *pkgoauth.Metadata, resourceURI string, da *oauth2.DeviceAuthResponse) (*TokenResult, error) {
	const op = "poll device token"

	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = defaultDeviceInterval
	}

	for {
		if !da.Expiry.IsZero() && c.now().After(da.Expiry) {
			return nil, &Error{Kind: KindTimeout, Op: op, Code: "expired_token", Description: "device code expired"}
		}

		if err := c.sleep(ctx, interval); err != nil {
			return nil, &Error{Kind: KindTimeout, Op: op, Description: "device authorization cancelled", Err: err}
		}

		result, err := c.GetTokens(ctx, authURI, md, resourceURI, da.DeviceCode, pkgoauth.GrantDeviceCode, "")
		switch CodeOf(err) {
		case "":
			if err != nil {
				return nil, err
			}
			return result, nil
		case "authorization_pending":
			logging.Debug("Token", "Device authorization pending for %s", authURI)
		case "slow_down":
			interval += slowDownIncrement
			logging.Debug("Token", "Device authorization slow_down, interval now %s", interval)
		default:
			return nil, err
		}
	}
}
