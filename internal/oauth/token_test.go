package oauth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cupsoauth/internal/credstore"
	pkgoauth "cupsoauth/pkg/oauth"
)

func TestGetTokens_AuthorizationCode(t *testing.T) {
	as := newFakeAS(t)
	clock := newTestClock()
	c := as.newTestClient(clock)
	store := c.Store()

	require.NoError(t, c.SaveClientData(testAuthURI, "", "client-1", "secret-1"))
	require.NoError(t, store.SaveString(testAuthURI, testResourceURI, credstore.KindRedirectURI, "http://127.0.0.1:10042/"))
	require.NoError(t, store.SaveString(testAuthURI, testResourceURI, credstore.KindCodeVerifier, "verifier-1"))

	result, err := c.GetTokens(context.Background(), testAuthURI, as.md(), testResourceURI, "abc123", pkgoauth.GrantAuthorizationCode, "")
	require.NoError(t, err)
	assert.Equal(t, "access-1", result.AccessToken)
	assert.Equal(t, "refresh-1", result.RefreshToken)
	assert.True(t, result.Expires.Equal(clock.Now().Add(time.Hour)))
	assert.Nil(t, result.Claims)

	form := as.lastForm()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "abc123", form.Get("code"))
	assert.Equal(t, "http://127.0.0.1:10042/", form.Get("redirect_uri"))
	assert.Equal(t, "client-1", form.Get("client_id"))
	assert.Equal(t, "secret-1", form.Get("client_secret"))
	assert.Equal(t, "verifier-1", form.Get("code_verifier"))
	assert.Equal(t, "application/x-www-form-urlencoded", as.header("/token").Get("Content-Type"))

	token, expires, err := c.CopyAccessToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, result.Expires.Unix(), expires.Unix())

	refresh, err := c.CopyRefreshToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestGetTokens_WithIDToken(t *testing.T) {
	as := newFakeAS(t)
	c := as.newTestClient(newTestClock())
	require.NoError(t, c.Store().SaveString(testAuthURI, testResourceURI, credstore.KindNonce, "nonce-1"))

	idToken := as.signIDToken(map[string]interface{}{
		"iss":     testAuthURI,
		"sub":     "user-42",
		"aud":     "client-1",
		"nonce":   "nonce-1",
		"at_hash": atHash("access-1"),
		"email":   "jane@example.com",
	})
	as.handle("/token", func(w http.ResponseWriter, r *http.Request) {
		as.recordForm(r)
		as.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": "access-1",
			"id_token":     idToken,
		})
	})

	result, err := c.GetTokens(context.Background(), testAuthURI, as.md(), testResourceURI, "abc123", pkgoauth.GrantAuthorizationCode, "")
	require.NoError(t, err)
	require.NotNil(t, result.Claims)
	assert.Equal(t, "user-42", result.Claims.Subject)
	assert.True(t, result.Expires.IsZero())

	stored, err := c.CopyIDToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, idToken, stored)

	claims, err := c.CopyUserID(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.DisplayName())

	// No expiry means the token never expires.
	token, expires, err := c.CopyAccessToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.True(t, expires.IsZero())
}

func TestGetTokens_AtHashMismatchVoidsExchange(t *testing.T) {
	as := newFakeAS(t)
	c := as.newTestClient(newTestClock())

	// Previously stored tokens must survive a voided exchange.
	require.NoError(t, c.SaveTokens(testAuthURI, testResourceURI, "old-access", time.Time{}, "", "old-refresh"))

	idToken := as.signIDToken(map[string]interface{}{
		"sub":     "user-42",
		"at_hash": atHash("some-other-token"),
	})
	as.handle("/token", func(w http.ResponseWriter, r *http.Request) {
		as.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    60,
			"id_token":      idToken,
		})
	})

	result, err := c.GetTokens(context.Background(), testAuthURI, as.md(), testResourceURI, "abc123", pkgoauth.GrantAuthorizationCode, "")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrValidation))

	token, _, err := c.CopyAccessToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
	refresh, err := c.CopyRefreshToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", refresh)
	idtk, err := c.CopyIDToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Empty(t, idtk)
}

func TestGetTokens_ErrorResponse(t *testing.T) {
	as := newFakeAS(t)
	as.handle("/token", func(w http.ResponseWriter, r *http.Request) {
		as.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "authorization_pending",
			"error_description": "waiting for the user",
		})
	})
	c := as.newTestClient(newTestClock())

	_, err := c.GetTokens(context.Background(), testAuthURI, as.md(), testResourceURI, "device-1", pkgoauth.GrantDeviceCode, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))
	assert.Equal(t, "authorization_pending", CodeOf(err))
}

func TestGetTokens_InvalidInputs(t *testing.T) {
	as := newFakeAS(t)
	c := as.newTestClient(newTestClock())
	ctx := context.Background()

	md := as.md()
	_, err := c.GetTokens(ctx, testAuthURI, md, testResourceURI, "x", pkgoauth.GrantType("password"), "")
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = c.GetTokens(ctx, testAuthURI, md, testResourceURI, "", pkgoauth.GrantAuthorizationCode, "")
	assert.True(t, errors.Is(err, ErrConfiguration))

	md.TokenEndpoint = ""
	_, err = c.GetTokens(ctx, testAuthURI, md, testResourceURI, "x", pkgoauth.GrantAuthorizationCode, "")
	assert.True(t, errors.Is(err, ErrProtocol))
	assert.Equal(t, 0, as.count("/token"))
}

func TestGetTokens_MissingAccessToken(t *testing.T) {
	as := newFakeAS(t)
	as.handle("/token", func(w http.ResponseWriter, r *http.Request) {
		as.writeJSON(w, http.StatusOK, map[string]string{"token_type": "Bearer"})
	})
	c := as.newTestClient(newTestClock())

	_, err := c.GetTokens(context.Background(), testAuthURI, as.md(), testResourceURI, "abc", pkgoauth.GrantAuthorizationCode, "")
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestGetTokens_Refresh(t *testing.T) {
	as := newFakeAS(t)
	c := as.newTestClient(newTestClock())
	require.NoError(t, c.SaveTokens(testAuthURI, testResourceURI, "old-access", time.Time{}, "", "refresh-0"))
	require.NoError(t, c.Store().SaveString(testAuthURI, testResourceURI, credstore.KindCodeVerifier, "verifier-1"))

	as.handle("/token", func(w http.ResponseWriter, r *http.Request) {
		as.recordForm(r)
		as.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": "access-2",
			"expires_in":   120,
		})
	})

	result, err := c.RefreshTokens(context.Background(), testAuthURI, as.md(), testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "access-2", result.AccessToken)
	assert.Equal(t, "refresh-0", result.RefreshToken)

	form := as.lastForm()
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "refresh-0", form.Get("refresh_token"))
	assert.False(t, form.Has("redirect_uri"))
	assert.False(t, form.Has("code_verifier"))
	assert.False(t, form.Has("code"))

	refresh, err := c.CopyRefreshToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "refresh-0", refresh, "refresh token is kept when none is returned")
}

func TestRefreshTokens_NoRefreshToken(t *testing.T) {
	as := newFakeAS(t)
	c := as.newTestClient(newTestClock())

	_, err := c.RefreshTokens(context.Background(), testAuthURI, as.md(), testResourceURI)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestTokens_RoundTripAndClear(t *testing.T) {
	as := newFakeAS(t)
	clock := newTestClock()
	c := as.newTestClient(clock)

	expires := clock.Now().Add(10 * time.Minute)
	require.NoError(t, c.SaveTokens(testAuthURI, testResourceURI, "access", expires, "id", "refresh"))

	path, err := c.Store().MakePath(testAuthURI, testResourceURI, credstore.KindAccessToken)
	require.NoError(t, err)
	raw, err := c.Store().Load(testAuthURI, testResourceURI, credstore.KindAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access\n"+itoa(expires.Unix())+"\n", string(raw), path)

	token, gotExpires, err := c.CopyAccessToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "access", token)
	assert.Equal(t, expires.Unix(), gotExpires.Unix())

	clock.Advance(11 * time.Minute)
	token, _, err = c.CopyAccessToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Empty(t, token, "expired tokens are reported as absent")

	require.NoError(t, c.ClearTokens(testAuthURI, testResourceURI))
	for _, kind := range []credstore.Kind{credstore.KindAccessToken, credstore.KindIDToken, credstore.KindRefreshToken} {
		_, err := c.Store().Load(testAuthURI, testResourceURI, kind)
		assert.ErrorIs(t, err, credstore.ErrNotFound, string(kind))
	}

	claims, err := c.CopyUserID(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Nil(t, claims)
}

func TestSaveTokens_FailedWriteRestoresPrevious(t *testing.T) {
	as := newFakeAS(t)
	c := as.newTestClient(newTestClock())

	require.NoError(t, c.SaveTokens(testAuthURI, testResourceURI, "old-access", time.Time{}, "", "old-refresh"))

	// A non-empty directory where the ID token goes makes its write fail.
	idPath, err := c.Store().MakePath(testAuthURI, testResourceURI, credstore.KindIDToken)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(idPath, "blocker"), 0700))

	err = c.SaveTokens(testAuthURI, testResourceURI, "new-access", time.Time{}, "new-id", "new-refresh")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResource))

	token, _, err := c.CopyAccessToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
	refresh, err := c.CopyRefreshToken(testAuthURI, testResourceURI)
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", refresh)

	// With nothing cached before, a failed save leaves nothing behind.
	require.NoError(t, c.Store().Remove(testAuthURI, testResourceURI, credstore.KindAccessToken))
	require.NoError(t, c.Store().Remove(testAuthURI, testResourceURI, credstore.KindRefreshToken))
	err = c.SaveTokens(testAuthURI, testResourceURI, "new-access", time.Time{}, "new-id", "new-refresh")
	require.Error(t, err)
	_, err = c.Store().Load(testAuthURI, testResourceURI, credstore.KindAccessToken)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestTokenResult_Token(t *testing.T) {
	r := &TokenResult{AccessToken: "a", RefreshToken: "r", IDToken: "i"}
	tok := r.Token()
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.Equal(t, "i", tok.IDToken)
	assert.False(t, tok.IsExpired())
}

func TestAuthorizeAndExchange_EndToEnd(t *testing.T) {
	as := newFakeAS(t)
	browser := newFakeBrowser(t, echoState("abc123"))
	c := as.newTestClient(newTestClock(), WithBrowser(browser))
	ctx := context.Background()

	md, err := c.GetMetadata(ctx, testAuthURI)
	require.NoError(t, err)

	code, err := c.GetAuthorizationCode(ctx, testAuthURI, md, testResourceURI, "", "")
	require.NoError(t, err)

	q := browser.query()
	as.handle("/token", func(w http.ResponseWriter, r *http.Request) {
		form := as.recordForm(r)
		if pkgoauth.S256Challenge(form.Get("code_verifier")) != q.Get("code_challenge") {
			as.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		as.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": "access-e2e",
			"expires_in":   300,
			"id_token": as.signIDToken(map[string]interface{}{
				"sub":     "user-1",
				"nonce":   q.Get("nonce"),
				"at_hash": atHash("access-e2e"),
			}),
		})
	})

	result, err := c.GetTokens(ctx, testAuthURI, md, testResourceURI, code, pkgoauth.GrantAuthorizationCode, "")
	require.NoError(t, err)
	assert.Equal(t, "access-e2e", result.AccessToken)
	assert.Equal(t, "user-1", result.Claims.Subject)
	assert.Equal(t, q.Get("redirect_uri"), as.lastForm().Get("redirect_uri"))
	assert.Equal(t, "registered-client", as.lastForm().Get("client_id"))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
