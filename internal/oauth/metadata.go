package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"

	"cupsoauth/internal/credstore"
	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

// Well-known discovery paths, tried in order.
var discoveryPaths = []string{
	"/.well-known/oauth-authorization-server",
	"/.well-known/openid-configuration",
}

// githubMetadata is served for https://github.com, which has no RFC 8414 endpoint.
var githubMetadata = []byte(`{
  "issuer": "https://github.com",
  "authorization_endpoint": "https://github.com/login/oauth/authorize",
  "token_endpoint": "https://github.com/login/oauth/access_token",
  "device_authorization_endpoint": "https://github.com/login/device/code",
  "response_types_supported": ["code"],
  "grant_types_supported": ["authorization_code", "refresh_token", "urn:ietf:params:oauth:grant-type:device_code"],
  "scopes_supported": ["repo", "user", "read:org"]
}`)

func isGitHub(authURI string) bool {
	u, err := url.Parse(authURI)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), "github.com") && (u.Port() == "" || u.Port() == "443")
}

// GetMetadata returns the authorization server metadata for authURI.
//
// A cached document younger than the freshness window is returned without a
// network request. Otherwise the well-known endpoints are tried in order with
// If-Modified-Since set from the cache. When every endpoint fails the cache is
// deleted.
func (c *Client) GetMetadata(ctx context.Context, authURI string) (*pkgoauth.Metadata, error) {
	const op = "get metadata"

	key, err := c.store.MakePath(authURI, "", credstore.KindMetadata)
	if err != nil {
		return nil, storeError(op, err)
	}

	if isGitHub(authURI) {
		if err := c.store.Save(authURI, "", credstore.KindMetadata, githubMetadata); err != nil {
			return nil, storeError(op, err)
		}
		md, err := pkgoauth.ParseMetadata(githubMetadata)
		if err != nil {
			return nil, wrapError(KindProtocol, op, err)
		}
		return md, nil
	}

	base := strings.TrimSuffix(authURI, "/")
	urls := make([]string, 0, len(discoveryPaths))
	for _, p := range discoveryPaths {
		urls = append(urls, base+p)
	}

	// Use singleflight to deduplicate concurrent fetches
	result, err, shared := c.fetchGroup.Do(key, func() (interface{}, error) {
		return c.fetchCached(ctx, op, authURI, credstore.KindMetadata, urls)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("Metadata", "Shared metadata fetch for %s", authURI)
	}

	md, err := pkgoauth.ParseMetadata(result.([]byte))
	if err != nil {
		_ = c.store.Remove(authURI, "", credstore.KindMetadata)
		return nil, wrapError(KindProtocol, op, err)
	}
	return md, nil
}

// GetJWKS returns the JSON Web Key Set advertised by md, cached under the
// same freshness policy as the metadata.
func (c *Client) GetJWKS(ctx context.Context, authURI string, md *pkgoauth.Metadata) (*jose.JSONWebKeySet, error) {
	const op = "get jwks"

	if md == nil || md.JwksURI == "" {
		return nil, &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf("jwks_uri: %w", pkgoauth.ErrMissingEndpoint)}
	}

	key, err := c.store.MakePath(authURI, "", credstore.KindJWKS)
	if err != nil {
		return nil, storeError(op, err)
	}

	result, err, _ := c.fetchGroup.Do(key, func() (interface{}, error) {
		return c.fetchCached(ctx, op, authURI, credstore.KindJWKS, []string{md.JwksURI})
	})
	if err != nil {
		return nil, err
	}

	var jwks jose.JSONWebKeySet
	if err := json.Unmarshal(result.([]byte), &jwks); err != nil {
		_ = c.store.Remove(authURI, "", credstore.KindJWKS)
		return nil, wrapError(KindProtocol, op, fmt.Errorf("failed to parse JWKS: %w", err))
	}
	return &jwks, nil
}

// fetchCached implements the shared cache policy for JSON documents.
func (c *Client) fetchCached(ctx context.Context, op, authURI string, kind credstore.Kind, urls []string) ([]byte, error) {
	cached, err := c.store.Load(authURI, "", kind)
	if err != nil && !errors.Is(err, credstore.ErrNotFound) {
		logging.Warn("Metadata", "Ignoring unreadable %s cache for %s: %v", kind, authURI, err)
	}

	var modTime time.Time
	if cached != nil {
		if mt, err := c.store.ModTime(authURI, "", kind); err == nil {
			modTime = mt
		}
		if !modTime.IsZero() && c.now().Sub(modTime) <= c.freshness {
			logging.Debug("Metadata", "Using cached %s for %s", kind, authURI)
			return cached, nil
		}
	}

	var lastErr error
	for _, u := range urls {
		body, status, err := c.getDocument(ctx, op, u, modTime)
		if err != nil {
			logging.Debug("Metadata", "Fetching %s failed: %v", u, err)
			lastErr = err
			continue
		}

		switch status {
		case http.StatusNotModified:
			if cached == nil {
				lastErr = protocolError(op, "", "unexpected 304 without a cached document")
				continue
			}
			if err := c.store.Touch(authURI, "", kind); err != nil {
				logging.Debug("Metadata", "Failed to touch %s cache: %v", kind, err)
			}
			logging.Debug("Metadata", "%s for %s not modified", kind, authURI)
			return cached, nil

		case http.StatusOK:
			if !json.Valid(body) {
				lastErr = protocolError(op, "", fmt.Sprintf("invalid JSON from %s", u))
				continue
			}
			if err := c.store.Save(authURI, "", kind, body); err != nil {
				return nil, storeError(op, err)
			}
			logging.Info("Metadata", "Fetched %s for %s from %s", kind, authURI, u)
			return body, nil

		default:
			lastErr = protocolError(op, "", fmt.Sprintf("%s returned HTTP %d", u, status))
		}
	}

	if err := c.store.Remove(authURI, "", kind); err != nil {
		logging.Debug("Metadata", "Failed to remove stale %s cache: %v", kind, err)
	}
	if lastErr == nil {
		lastErr = protocolError(op, "", "no document URL")
	}
	return nil, lastErr
}

// getDocument performs one conditional GET and returns the body for 200 responses.
func (c *Client) getDocument(ctx context.Context, op, docURL string, modTime time.Time) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, 0, wrapError(KindConfiguration, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if !modTime.IsZero() {
		req.Header.Set("If-Modified-Since", modTime.UTC().Format(http.TimeFormat))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, pkgoauth.MaxDocumentSize))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, pkgoauth.MaxDocumentSize+1))
	if err != nil {
		return nil, 0, transportError(op, err)
	}
	if len(body) > pkgoauth.MaxDocumentSize {
		return nil, 0, protocolError(op, "", fmt.Sprintf("%s response exceeds %d bytes", docURL, pkgoauth.MaxDocumentSize))
	}
	return body, resp.StatusCode, nil
}
