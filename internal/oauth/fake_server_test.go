package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"cupsoauth/internal/credstore"
	"cupsoauth/internal/testing/mock"
	pkgoauth "cupsoauth/pkg/oauth"
)

const (
	// testAuthURI resolves to the fake server; the httptest certificate is valid for example.com.
	testAuthURI     = "https://example.com"
	testResourceURI = "ipps://printer.example.com/ipp/print"
	testKeyID       = "test-key"
)

func newTestClock() *mock.Clock {
	return mock.NewClock(time.Time{})
}

// fakeAS is an in-process authorization server.
type fakeAS struct {
	t   *testing.T
	srv *httptest.Server
	key *mock.Signer

	mu       sync.Mutex
	counts   map[string]int
	headers  map[string]http.Header
	forms    []url.Values
	regs     []ClientRegistrationRequest
	metadata map[string]interface{}

	// Handlers overriding the defaults, keyed by path.
	handlers map[string]http.HandlerFunc
}

func newFakeAS(t *testing.T) *fakeAS {
	t.Helper()

	key, err := mock.NewSigner(testKeyID)
	require.NoError(t, err)

	f := &fakeAS{
		t:        t,
		key:      key,
		counts:   make(map[string]int),
		headers:  make(map[string]http.Header),
		handlers: make(map[string]http.HandlerFunc),
		metadata: map[string]interface{}{
			"issuer":                           testAuthURI,
			"authorization_endpoint":           testAuthURI + "/authorize",
			"token_endpoint":                   testAuthURI + "/token",
			"registration_endpoint":            testAuthURI + "/register",
			"device_authorization_endpoint":    testAuthURI + "/device",
			"jwks_uri":                         testAuthURI + "/jwks",
			"scopes_supported":                 []string{"openid", "print"},
			"response_types_supported":         []string{"code"},
			"code_challenge_methods_supported": []string{"S256"},
		},
	}
	f.srv = httptest.NewTLSServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAS) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.counts[r.URL.Path]++
	f.headers[r.URL.Path] = r.Header.Clone()
	h := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}

	switch r.URL.Path {
	case "/.well-known/oauth-authorization-server":
		f.writeJSON(w, http.StatusOK, f.metadataDoc())
	case "/jwks":
		f.writeJSON(w, http.StatusOK, f.jwks())
	case "/register":
		var req ClientRegistrationRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.regs = append(f.regs, req)
		f.mu.Unlock()
		f.writeJSON(w, http.StatusCreated, map[string]string{"client_id": "registered-client"})
	case "/token":
		f.recordForm(r)
		f.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "access-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
		})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAS) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeAS) setMetadata(key string, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value == nil {
		delete(f.metadata, key)
		return
	}
	f.metadata[key] = value
}

func (f *fakeAS) metadataDoc() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := make(map[string]interface{}, len(f.metadata))
	for k, v := range f.metadata {
		doc[k] = v
	}
	return doc
}

func (f *fakeAS) md() *pkgoauth.Metadata {
	data, err := json.Marshal(f.metadataDoc())
	require.NoError(f.t, err)
	md, err := pkgoauth.ParseMetadata(data)
	require.NoError(f.t, err)
	return md
}

func (f *fakeAS) recordForm(r *http.Request) url.Values {
	require.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, r.PostForm)
	return r.PostForm
}

func (f *fakeAS) lastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.forms)
	return f.forms[len(f.forms)-1]
}

func (f *fakeAS) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

func (f *fakeAS) header(path string) http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[path]
}

func (f *fakeAS) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeAS) jwks() jose.JSONWebKeySet {
	return f.key.JWKS()
}

// signIDToken returns a compact JWS signed with the server key.
func (f *fakeAS) signIDToken(claims map[string]interface{}) string {
	token, err := f.key.Sign(claims)
	require.NoError(f.t, err)
	return token
}

func atHash(accessToken string) string {
	return mock.AtHash(accessToken)
}

// httpClient routes every host to the fake server and trusts its certificate.
func (f *fakeAS) httpClient() *http.Client {
	tr := f.srv.Client().Transport.(*http.Transport).Clone()
	addr := f.srv.Listener.Addr().String()
	tr.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}
	return &http.Client{Transport: tr, Timeout: 10 * time.Second}
}

// newTestClient returns a client on a fresh store sharing clock with it.
func (f *fakeAS) newTestClient(clock *mock.Clock, opts ...ClientOption) *Client {
	store := credstore.New(filepath.Join(f.t.TempDir(), "oauth"), credstore.WithClock(clock.Now))
	all := []ClientOption{
		WithHTTPClient(f.httpClient()),
		WithClock(clock.Now),
		WithBrowser(BrowserFunc(func(string) error {
			f.t.Fatal("browser must not be opened")
			return nil
		})),
	}
	return NewClient(store, append(all, opts...)...)
}

// callbackResponse is what the fake browser observed from the loopback listener.
type callbackResponse struct {
	status int
	body   string
	err    error
}

// fakeBrowser "follows" the authorization URL by calling the redirect URI
// with the query produced by reply. Requests run on a separate goroutine
// because the listener is served on the caller's goroutine.
type fakeBrowser struct {
	t     *testing.T
	reply func(authQuery url.Values) url.Values

	// preflight requests sent before the real callback, as method + path.
	preflight []string

	mu        sync.Mutex
	authQuery url.Values
	results   chan callbackResponse
}

func newFakeBrowser(t *testing.T, reply func(url.Values) url.Values) *fakeBrowser {
	return &fakeBrowser{t: t, reply: reply, results: make(chan callbackResponse, 8)}
}

func (b *fakeBrowser) OpenURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	q := u.Query()
	b.mu.Lock()
	b.authQuery = q
	b.mu.Unlock()

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		return err
	}

	go func() {
		client := &http.Client{Timeout: 5 * time.Second}
		for _, p := range b.preflight {
			var method, path string
			if _, err := fmt.Sscan(p, &method, &path); err != nil {
				b.results <- callbackResponse{err: err}
				return
			}
			target := *redirect
			target.Path = path
			req, _ := http.NewRequest(method, target.String(), nil)
			b.results <- doCallback(client, req)
		}
		if b.reply == nil {
			return
		}
		target := *redirect
		target.RawQuery = b.reply(q).Encode()
		req, _ := http.NewRequest(http.MethodGet, target.String(), nil)
		b.results <- doCallback(client, req)
	}()
	return nil
}

func (b *fakeBrowser) query() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authQuery
}

func (b *fakeBrowser) next() callbackResponse {
	select {
	case r := <-b.results:
		return r
	case <-time.After(10 * time.Second):
		b.t.Fatal("no callback response observed")
		return callbackResponse{}
	}
}

func doCallback(client *http.Client, req *http.Request) callbackResponse {
	resp, err := client.Do(req)
	if err != nil {
		return callbackResponse{err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return callbackResponse{status: resp.StatusCode, body: string(body)}
}
