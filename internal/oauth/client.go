package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"cupsoauth/internal/credstore"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultCallbackTimeout is how long to wait for the browser redirect.
	DefaultCallbackTimeout = 60 * time.Second

	// DefaultMetadataFreshness is how long a cached metadata or JWKS document
	// is used without asking the authorization server.
	DefaultMetadataFreshness = 60 * time.Second

	// DefaultRedirectURI is the loopback redirect used for client registration.
	// RFC 8252 loopback clients may use any port at authorization time.
	DefaultRedirectURI = "http://127.0.0.1/"

	// Loopback port range probed when no redirect URI is given.
	DefaultPortMin = 10000
	DefaultPortMax = 10999

	maxRedirects = 10
)

var errCrossOriginRedirect = errors.New("redirect to a different origin")

// Client implements the CUPS OAuth client operations on top of a credential store.
//
// The Client holds no per-flow state; every persistent value lives in the store.
// It is safe for concurrent use, but the store does not serialize writers.
type Client struct {
	store      *credstore.Store
	httpClient *http.Client
	browser    Browser
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	callbackTimeout time.Duration
	freshness       time.Duration
	portMin         int
	portMax         int

	// singleflight group to deduplicate concurrent metadata fetches
	fetchGroup singleflight.Group
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Its redirect policy is replaced
// with the same-origin policy.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBrowser sets the browser used to present authorization URLs.
func WithBrowser(b Browser) ClientOption {
	return func(c *Client) {
		c.browser = b
	}
}

// WithClock sets the time source used for cache freshness and token expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithCallbackTimeout sets how long GetAuthorizationCode waits for the redirect.
func WithCallbackTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.callbackTimeout = d
		}
	}
}

// WithMetadataFreshness sets how long cached documents are used without revalidation.
func WithMetadataFreshness(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.freshness = d
		}
	}
}

// WithPortRange sets the loopback ports probed for the redirect listener.
func WithPortRange(minPort, maxPort int) ClientOption {
	return func(c *Client) {
		if minPort > 0 && maxPort >= minPort {
			c.portMin = minPort
			c.portMax = maxPort
		}
	}
}

// NewClient creates a new OAuth client backed by store.
func NewClient(store *credstore.Store, opts ...ClientOption) *Client {
	c := &Client{
		store:           store,
		httpClient:      &http.Client{Timeout: DefaultHTTPTimeout},
		browser:         SystemBrowser{},
		now:             time.Now,
		sleep:           sleepContext,
		callbackTimeout: DefaultCallbackTimeout,
		freshness:       DefaultMetadataFreshness,
		portMin:         DefaultPortMin,
		portMax:         DefaultPortMax,
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.CheckRedirect = sameOriginRedirect
	c.httpClient = &hc

	return c
}

// Store returns the credential store backing the client.
func (c *Client) Store() *credstore.Store {
	return c.store
}

// sameOriginRedirect follows redirects only while scheme, host and port stay
// identical to the original request.
func sameOriginRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	orig := via[0].URL
	if !strings.EqualFold(req.URL.Scheme, orig.Scheme) ||
		!strings.EqualFold(req.URL.Hostname(), orig.Hostname()) ||
		effectivePort(req.URL.Scheme, req.URL.Port()) != effectivePort(orig.Scheme, orig.Port()) {
		return fmt.Errorf("%w: %s", errCrossOriginRedirect, req.URL.Redacted())
	}
	return nil
}

func effectivePort(scheme, port string) string {
	if port != "" {
		return port
	}
	switch strings.ToLower(scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// registrationRedirect returns the redirect URI used to key client registrations.
func registrationRedirect(redirectURI string) string {
	if redirectURI == "" {
		return DefaultRedirectURI
	}
	return redirectURI
}

// storeError maps a credential store failure to the package error taxonomy.
func storeError(op string, err error) *Error {
	if errors.Is(err, credstore.ErrInvalidURI) || errors.Is(err, credstore.ErrInvalidKind) {
		return wrapError(KindConfiguration, op, err)
	}
	return wrapError(KindResource, op, err)
}
