package oauth

import (
	"context"
	"log/slog"
	"time"

	"cupsoauth/internal/credstore"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// authState names the phases of one authorization attempt for logging.
type authState string

const (
	stateInit             authState = "INIT"
	stateListening        authState = "LISTENING"
	stateBrowserLaunched  authState = "BROWSER_LAUNCHED"
	stateAwaitingCallback authState = "AWAITING_CALLBACK"
	stateSuccess          authState = "SUCCESS"
	stateProtocolError    authState = "PROTOCOL_ERROR"
	stateTimeout          authState = "TIMEOUT"
)

func logTransition(authURI string, s authState) {
	logging.Debug("Authorize", "Authorization for %s: %s", authURI, s)
}

// GetAuthorizationCode runs the RFC 8252 loopback authorization flow and returns
// the authorization code.
//
// The user's browser is sent to the authorization endpoint and the redirect is
// received on a loopback listener. When redirectURI is empty a port in the
// configured range is chosen. The exact redirect URI is stored for the
// following token request, together with the PKCE verifier and nonce generated
// for this attempt. Nothing is stored when the state does not match.
func (c *Client) GetAuthorizationCode(ctx context.Context, authURI string, md *pkgoauth.Metadata, resourceURI, scopes, redirectURI string) (string, error) {
	const op = "get authorization code"

	logTransition(authURI, stateInit)

	if md == nil || md.AuthorizationEndpoint == "" {
		return "", &Error{Kind: KindProtocol, Op: op, Description: "authorization_endpoint not advertised"}
	}

	regRedirect := registrationRedirect(redirectURI)
	if regRedirect == DefaultRedirectURI && redirectURI != "" {
		redirectURI = ""
	}

	clientID, _, err := c.CopyClientID(authURI, regRedirect)
	if err != nil {
		return "", err
	}
	if clientID == "" {
		if md.RegistrationEndpoint == "" {
			return "", configError(op, "no client_id for %s and dynamic registration is not available", authURI)
		}
		clientID, err = c.GetClientID(ctx, authURI, md, regRedirect, "", "")
		if err != nil {
			return "", err
		}
	}

	ln, actualRedirect, path, err := listenLoopback(redirectURI, c.portMin, c.portMax)
	if err != nil {
		return "", wrapError(KindResource, op, err)
	}
	defer ln.Close()
	logTransition(authURI, stateListening)

	if err := c.store.SaveString(authURI, resourceURI, credstore.KindRedirectURI, actualRedirect); err != nil {
		return "", storeError(op, err)
	}

	var verifier, nonce string
	if md.SupportsS256() {
		if verifier, err = pkgoauth.MakeBase64Random(32); err != nil {
			return "", wrapError(KindResource, op, err)
		}
	}
	if md.SupportsOpenID() {
		if nonce, err = pkgoauth.GenerateNonce(); err != nil {
			return "", wrapError(KindResource, op, err)
		}
	}
	state, err := pkgoauth.GenerateState()
	if err != nil {
		return "", wrapError(KindResource, op, err)
	}

	if scopes == "" {
		scopes = md.DefaultScope()
	}

	authURL, err := pkgoauth.AuthorizationURL(md, pkgoauth.AuthorizationRequest{
		ClientID:     clientID,
		RedirectURI:  actualRedirect,
		Resource:     resourceURI,
		Scope:        scopes,
		State:        state,
		Nonce:        nonce,
		CodeVerifier: verifier,
	})
	if err != nil {
		return "", wrapError(KindProtocol, op, err)
	}

	if err := c.browser.OpenURL(authURL); err != nil {
		return "", wrapError(KindResource, op, err)
	}
	logTransition(authURI, stateBrowserLaunched)

	srv := &callbackServer{
		listener:    ln,
		redirectURI: actualRedirect,
		path:        path,
		state:       state,
		authURI:     authURI,
	}

	logTransition(authURI, stateAwaitingCallback)
	code, err := srv.wait(ctx, time.Now().Add(c.callbackTimeout))
	if err != nil {
		if KindOf(err) == KindTimeout {
			logTransition(authURI, stateTimeout)
		} else {
			logTransition(authURI, stateProtocolError)
		}
		return "", err
	}

	if err := c.store.SaveString(authURI, resourceURI, credstore.KindCodeVerifier, verifier); err != nil {
		return "", storeError(op, err)
	}
	if err := c.store.SaveString(authURI, resourceURI, credstore.KindNonce, nonce); err != nil {
		return "", storeError(op, err)
	}

	logTransition(authURI, stateSuccess)
	logging.Audit("authorization_code_received",
		slog.String("auth_uri", authURI),
		slog.String("redirect_uri", actualRedirect),
		slog.Bool("pkce", verifier != ""),
		slog.Bool("nonce", nonce != ""),
	)
	return code, nil
}
