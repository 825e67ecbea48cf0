package oauth

import (
	"fmt"
	"regexp"
	"strings"
)

// AuthChallenge represents a parsed Bearer challenge from a WWW-Authenticate header.
type AuthChallenge struct {
	Scheme string
	Realm  string

	// AuthorizationServer is the realm when it is an https URL.
	AuthorizationServer string

	Scope            string
	Error            string
	ErrorDescription string
}

// IsBearer returns true if this is a Bearer challenge.
func (c *AuthChallenge) IsBearer() bool {
	return c != nil && strings.EqualFold(c.Scheme, "Bearer")
}

var (
	schemeRegex = regexp.MustCompile(`(?:^|,)\s*([A-Za-z][A-Za-z0-9_-]*)(?:\s+|$)`)
	paramRegex  = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_-]*)\s*=\s*(?:"((?:[^"\\]|\\.)*)"|([^\s,]+))`)
)

// ParseWWWAuthenticate parses a WWW-Authenticate header value and returns the
// Bearer challenge. Printers commonly offer several schemes:
//
//	Basic realm="CUPS", Bearer realm="https://auth.example.com", scope="ipp"
//
// When no Bearer challenge is present the first challenge is returned.
func ParseWWWAuthenticate(header string) (*AuthChallenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	type span struct {
		scheme     string
		start, end int
	}
	var spans []span
	for _, m := range schemeRegex.FindAllStringSubmatchIndex(header, -1) {
		// A scheme token is never followed by "=", that would be a parameter.
		rest := strings.TrimSpace(header[m[1]:])
		if strings.HasPrefix(rest, "=") {
			continue
		}
		if len(spans) > 0 {
			spans[len(spans)-1].end = m[0]
		}
		spans = append(spans, span{scheme: header[m[2]:m[3]], start: m[1], end: len(header)})
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("invalid WWW-Authenticate header format")
	}

	chosen := spans[0]
	for _, s := range spans {
		if strings.EqualFold(s.scheme, "Bearer") {
			chosen = s
			break
		}
	}

	challenge := &AuthChallenge{Scheme: chosen.scheme}
	params := parseAuthParams(header[chosen.start:chosen.end])
	challenge.Realm = params["realm"]
	challenge.Scope = params["scope"]
	challenge.Error = params["error"]
	challenge.ErrorDescription = params["error_description"]
	if strings.HasPrefix(challenge.Realm, "https://") {
		challenge.AuthorizationServer = challenge.Realm
	}

	return challenge, nil
}

// parseAuthParams parses key=value and key="value" pairs.
func parseAuthParams(paramStr string) map[string]string {
	params := make(map[string]string)

	for _, match := range paramRegex.FindAllStringSubmatch(paramStr, -1) {
		key := strings.ToLower(match[1])
		value := match[3]
		if value == "" {
			value = strings.ReplaceAll(match[2], `\"`, `"`)
		}
		params[key] = value
	}

	return params
}
