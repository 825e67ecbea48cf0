package oauth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cupsoauth/internal/credstore"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// SaveTokens stores the tokens for (authURI, resourceURI). Each empty value
// removes the corresponding file. A zero expires means the access token does
// not expire.
//
// When a write fails, the files already written are put back to their
// previous contents so the cache never mixes tokens of two grants.
func (c *Client) SaveTokens(authURI, resourceURI, accessToken string, expires time.Time, idToken, refreshToken string) error {
	const op = "save tokens"

	var access string
	if accessToken != "" {
		var epoch int64
		if !expires.IsZero() {
			epoch = expires.Unix()
		}
		access = fmt.Sprintf("%s\n%d\n", accessToken, epoch)
	}

	values := []struct {
		kind  credstore.Kind
		value string
	}{
		{credstore.KindAccessToken, access},
		{credstore.KindIDToken, idToken},
		{credstore.KindRefreshToken, refreshToken},
	}

	// An unreadable previous value is restored as absent.
	previous := make([][]byte, len(values))
	for i, v := range values {
		previous[i], _ = c.store.Load(authURI, resourceURI, v.kind)
	}

	for i, v := range values {
		if err := c.store.SaveString(authURI, resourceURI, v.kind, v.value); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := c.store.Save(authURI, resourceURI, values[j].kind, previous[j]); rerr != nil {
					logging.Warn("Tokens", "Failed to restore %s after a failed save: %v", values[j].kind, rerr)
				}
			}
			return storeError(op, err)
		}
	}
	return nil
}

// CopyAccessToken returns the stored access token and its expiry. Expired and
// absent tokens are both reported as "" with a nil error.
func (c *Client) CopyAccessToken(authURI, resourceURI string) (string, time.Time, error) {
	const op = "copy access token"

	data, err := c.store.LoadString(authURI, resourceURI, credstore.KindAccessToken)
	if err != nil {
		return "", time.Time{}, storeError(op, err)
	}
	if data == "" {
		return "", time.Time{}, nil
	}

	token, expires, err := parseAccessTokenFile(data)
	if err != nil {
		return "", time.Time{}, &Error{Kind: KindResource, Op: op, Err: err}
	}

	t := pkgoauth.Token{AccessToken: token, ExpiresAt: expires}
	if t.IsExpiredAt(c.now(), 0) {
		return "", expires, nil
	}
	return token, expires, nil
}

func parseAccessTokenFile(data string) (string, time.Time, error) {
	lines := strings.SplitN(data, "\n", 3)
	token := strings.TrimSpace(lines[0])
	if token == "" {
		return "", time.Time{}, fmt.Errorf("empty access token file")
	}
	if len(lines) < 2 {
		return token, time.Time{}, nil
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed access token expiry: %w", err)
	}
	if epoch == 0 {
		return token, time.Time{}, nil
	}
	return token, time.Unix(epoch, 0), nil
}

// CopyRefreshToken returns the stored refresh token, or "".
func (c *Client) CopyRefreshToken(authURI, resourceURI string) (string, error) {
	v, err := c.store.LoadString(authURI, resourceURI, credstore.KindRefreshToken)
	if err != nil {
		return "", storeError("copy refresh token", err)
	}
	return v, nil
}

// CopyIDToken returns the stored ID token, or "".
func (c *Client) CopyIDToken(authURI, resourceURI string) (string, error) {
	v, err := c.store.LoadString(authURI, resourceURI, credstore.KindIDToken)
	if err != nil {
		return "", storeError("copy id token", err)
	}
	return v, nil
}

// ClearTokens removes the access, ID and refresh tokens for (authURI, resourceURI).
func (c *Client) ClearTokens(authURI, resourceURI string) error {
	return c.SaveTokens(authURI, resourceURI, "", time.Time{}, "", "")
}

// CopyUserID returns the claims of the stored ID token, decoded without
// verification. It returns nil claims when no ID token is stored.
func (c *Client) CopyUserID(authURI, resourceURI string) (*pkgoauth.IDTokenClaims, error) {
	idToken, err := c.CopyIDToken(authURI, resourceURI)
	if err != nil || idToken == "" {
		return nil, err
	}
	claims, err := pkgoauth.ParseIDTokenClaims(idToken)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "copy user id", Err: err}
	}
	return claims, nil
}
