package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cupsoauth/internal/credstore"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// ClientRegistrationRequest is the RFC 7591 registration body sent by this client.
type ClientRegistrationRequest struct {
	ClientName      string   `json:"client_name"`
	ClientURI       string   `json:"client_uri"`
	SoftwareID      string   `json:"software_id"`
	SoftwareVersion string   `json:"software_version"`
	RedirectURIs    []string `json:"redirect_uris"`
	LogoURI         string   `json:"logo_uri,omitempty"`
	TOSURI          string   `json:"tos_uri,omitempty"`
}

// ClientRegistrationResponse holds the fields of an RFC 7591 response this
// client consumes, plus the RFC 6749 error fields.
type ClientRegistrationResponse struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at,omitempty"`

	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// GetClientID registers this client with the authorization server and stores
// the resulting client_id (and client_secret, when issued) for
// (authURI, redirectURI). An empty redirectURI means DefaultRedirectURI.
func (c *Client) GetClientID(ctx context.Context, authURI string, md *pkgoauth.Metadata, redirectURI, logoURI, tosURI string) (string, error) {
	const op = "register client"

	redirectURI = registrationRedirect(redirectURI)
	if md == nil || md.RegistrationEndpoint == "" {
		return "", &Error{
			Kind:        KindConfiguration,
			Op:          op,
			Description: "no client_id configured and the server does not support dynamic registration",
			Err:         fmt.Errorf("registration_endpoint: %w", pkgoauth.ErrMissingEndpoint),
		}
	}
	if _, err := c.store.MakePath(authURI, redirectURI, credstore.KindClientID); err != nil {
		return "", storeError(op, err)
	}

	reqBody := ClientRegistrationRequest{
		ClientName:      pkgoauth.SoftwareName,
		ClientURI:       pkgoauth.SoftwareURI,
		SoftwareID:      pkgoauth.SoftwareID(),
		SoftwareVersion: pkgoauth.SoftwareVersion,
		RedirectURIs:    []string{redirectURI},
		LogoURI:         logoURI,
		TOSURI:          tosURI,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", wrapError(KindConfiguration, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, md.RegistrationEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", wrapError(KindConfiguration, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, pkgoauth.MaxDocumentSize))
	if err != nil {
		return "", transportError(op, err)
	}

	var regResp ClientRegistrationResponse
	if jsonErr := json.Unmarshal(body, &regResp); jsonErr != nil && resp.StatusCode < 300 {
		return "", &Error{Kind: KindProtocol, Op: op, Description: "invalid registration response", Err: jsonErr}
	}

	if regResp.Error != "" {
		return "", protocolError(op, regResp.Error, regResp.ErrorDescription)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", protocolError(op, "", fmt.Sprintf("registration endpoint returned HTTP %d", resp.StatusCode))
	}
	if regResp.ClientID == "" {
		return "", protocolError(op, "", "registration response has no client_id")
	}

	if err := c.SaveClientData(authURI, redirectURI, regResp.ClientID, regResp.ClientSecret); err != nil {
		return "", err
	}

	logging.Audit("client_registered",
		slog.String("auth_uri", authURI),
		slog.String("redirect_uri", redirectURI),
		slog.Bool("has_client_secret", regResp.ClientSecret != ""),
	)
	return regResp.ClientID, nil
}

// CopyClientID returns the stored client_id and client_secret for
// (authURI, redirectURI). Absent values are returned as "".
func (c *Client) CopyClientID(authURI, redirectURI string) (clientID, clientSecret string, err error) {
	const op = "copy client id"

	redirectURI = registrationRedirect(redirectURI)
	clientID, err = c.store.LoadString(authURI, redirectURI, credstore.KindClientID)
	if err != nil {
		return "", "", storeError(op, err)
	}
	if clientID == "" {
		return "", "", nil
	}
	clientSecret, err = c.store.LoadString(authURI, redirectURI, credstore.KindClientSecret)
	if err != nil {
		return "", "", storeError(op, err)
	}
	return clientID, clientSecret, nil
}

// SaveClientData stores a client registration. An empty secret removes any
// previously stored secret.
func (c *Client) SaveClientData(authURI, redirectURI, clientID, clientSecret string) error {
	const op = "save client data"

	redirectURI = registrationRedirect(redirectURI)
	if err := c.store.SaveString(authURI, redirectURI, credstore.KindClientID, clientID); err != nil {
		return storeError(op, err)
	}
	if err := c.store.SaveString(authURI, redirectURI, credstore.KindClientSecret, clientSecret); err != nil {
		return storeError(op, err)
	}
	return nil
}
