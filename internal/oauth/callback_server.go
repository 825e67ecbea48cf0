package oauth

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"

	"cupsoauth/pkg/logging"
	pkgoauth "cupsoauth/pkg/oauth"
)

const (
	// acceptSlice bounds each Accept call so deadlines and cancellation are noticed.
	acceptSlice = time.Second

	// requestReadTimeout bounds reading one request from an accepted connection.
	requestReadTimeout = 5 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var callbackTemplates = template.Must(
	template.New("callback").Funcs(sprig.HtmlFuncMap()).ParseFS(templateFS, "templates/*.html"),
)

// pageData is rendered by the callback templates.
type pageData struct {
	Title       string
	Software    string
	Server      string
	Error       string
	Description string
}

// CallbackResult represents the parameters received on the redirect URI.
type CallbackResult struct {
	// Code is the authorization code from the OAuth provider.
	Code string

	// State is the state parameter to verify against the original request.
	State string

	// Error is the error code if the authorization failed.
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string
}

// IsError returns true if the callback result represents an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

// callbackServer is a single-threaded loopback HTTP listener that waits for
// exactly one authorization response. It runs on the caller's goroutine.
type callbackServer struct {
	listener    *net.TCPListener
	redirectURI string
	path        string
	state       string
	authURI     string
}

// listenLoopback binds the redirect listener. An explicit redirectURI binds
// exactly its host and port; otherwise ports in [portMin, portMax] on
// 127.0.0.1 are probed and a redirect URI is synthesized.
func listenLoopback(redirectURI string, portMin, portMax int) (*net.TCPListener, string, string, error) {
	if redirectURI != "" {
		u, err := url.Parse(redirectURI)
		if err != nil || u.Scheme != "http" || u.Hostname() == "" {
			return nil, "", "", fmt.Errorf("redirect URI %q must be an http loopback URL", redirectURI)
		}
		port := u.Port()
		if port == "" {
			port = "80"
		}
		ln, err := net.Listen("tcp", net.JoinHostPort(u.Hostname(), port))
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to listen on %s: %w", u.Host, err)
		}
		path := u.EscapedPath()
		if path == "" {
			path = "/"
		}
		return ln.(*net.TCPListener), redirectURI, path, nil
	}

	var lastErr error
	for port := portMin; port <= portMax; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			continue
		}
		return ln.(*net.TCPListener), fmt.Sprintf("http://127.0.0.1:%d/", port), "/", nil
	}
	return nil, "", "", fmt.Errorf("no free loopback port in %d-%d: %w", portMin, portMax, lastErr)
}

// wait accepts connections until a terminal callback arrives, the deadline
// passes or ctx is done. The listener is not closed here.
func (s *callbackServer) wait(ctx context.Context, deadline time.Time) (string, error) {
	const op = "get authorization code"

	for {
		if err := ctx.Err(); err != nil {
			return "", &Error{Kind: KindTimeout, Op: op, Description: "authorization cancelled", Err: err}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", &Error{Kind: KindTimeout, Op: op, Description: "no authorization response before the deadline"}
		}
		if remaining > acceptSlice {
			remaining = acceptSlice
		}
		if err := s.listener.SetDeadline(time.Now().Add(remaining)); err != nil {
			return "", wrapError(KindResource, op, err)
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return "", wrapError(KindResource, op, err)
		}

		done, code, cbErr := s.serveConn(ctx, conn, deadline)
		_ = conn.Close()
		if done {
			return code, cbErr
		}
	}
}

// serveConn handles one request on conn. done reports whether the attempt is over.
// Reading never outlives deadline or ctx.
func (s *callbackServer) serveConn(ctx context.Context, conn net.Conn, deadline time.Time) (done bool, code string, err error) {
	const op = "get authorization code"

	connDeadline := time.Now().Add(requestReadTimeout)
	if deadline.Before(connDeadline) {
		connDeadline = deadline
	}
	_ = conn.SetDeadline(connDeadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	req, readErr := http.ReadRequest(bufio.NewReader(conn))
	if readErr != nil {
		logging.Debug("Authorize", "Ignoring unreadable callback request: %v", readErr)
		s.respond(conn, nil, http.StatusBadRequest, nil)
		return false, "", nil
	}
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(req.Body, pkgoauth.MaxDocumentSize))
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		s.respond(conn, req, http.StatusMethodNotAllowed, nil)
		return false, "", nil
	}
	// s.path is in escaped form, as taken from the redirect URI.
	if !strings.HasPrefix(req.URL.EscapedPath(), s.path) {
		s.respond(conn, req, http.StatusNotFound, nil)
		return false, "", nil
	}
	if req.Method == http.MethodHead {
		s.respond(conn, req, http.StatusOK, nil)
		return false, "", nil
	}

	q := req.URL.Query()
	result := &CallbackResult{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	if result.State == "" && result.Code == "" && !result.IsError() {
		// Browsers also ask for /favicon.ico and similar.
		s.respond(conn, req, http.StatusNotFound, nil)
		return false, "", nil
	}

	if result.State != s.state {
		logging.Warn("Authorize", "Callback state mismatch, discarding authorization response")
		s.respond(conn, req, http.StatusBadRequest, s.page("callback_error.html", pageData{
			Error:       "invalid_state",
			Description: "The authorization response does not match the request that was sent.",
		}))
		return true, "", validationError(op, "state mismatch")
	}

	if result.IsError() {
		s.respond(conn, req, http.StatusBadRequest, s.page("callback_error.html", pageData{
			Error:       result.Error,
			Description: result.ErrorDescription,
		}))
		return true, "", protocolError(op, result.Error, result.ErrorDescription)
	}

	if result.Code == "" {
		s.respond(conn, req, http.StatusBadRequest, s.page("callback_error.html", pageData{
			Error:       "invalid_request",
			Description: "The authorization response has neither a code nor an error.",
		}))
		return true, "", protocolError(op, "invalid_request", "callback has neither code nor error")
	}

	s.respond(conn, req, http.StatusOK, s.page("callback_success.html", pageData{
		Software: pkgoauth.SoftwareName,
		Server:   s.authURI,
	}))
	return true, result.Code, nil
}

func (s *callbackServer) page(name string, data pageData) []byte {
	var buf bytes.Buffer
	if err := callbackTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Error("Authorize", err, "Failed to render %s", name)
		return []byte(http.StatusText(http.StatusInternalServerError))
	}
	return buf.Bytes()
}

// respond writes a complete HTTP/1.1 response and asks the client to close.
func (s *callbackServer) respond(conn net.Conn, req *http.Request, status int, body []byte) {
	if body == nil && status != http.StatusOK {
		body = []byte(http.StatusText(status) + "\n")
	}

	h := make(http.Header)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	if bytes.HasPrefix(body, []byte("<!DOCTYPE")) {
		h.Set("Content-Type", "text/html; charset=utf-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}

	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Close:         true,
		Request:       req,
	}
	if err := resp.Write(conn); err != nil {
		logging.Debug("Authorize", "Failed to write callback response: %v", err)
	}
}
