package oauth

import (
	"fmt"
	"strings"
)

// GrantType identifies the grant presented at the token endpoint.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

// ParamName returns the form field carrying the grant value.
func (g GrantType) ParamName() string {
	switch g {
	case GrantAuthorizationCode:
		return "code"
	case GrantDeviceCode:
		return "device_code"
	case GrantRefreshToken:
		return "refresh_token"
	default:
		return ""
	}
}

// Valid reports whether g is one of the supported grants.
func (g GrantType) Valid() bool {
	return g.ParamName() != ""
}

// ParseGrantType accepts either the wire value or a short alias
// ("code", "device", "refresh").
func ParseGrantType(s string) (GrantType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "code", string(GrantAuthorizationCode):
		return GrantAuthorizationCode, nil
	case "device", "device_code", string(GrantDeviceCode):
		return GrantDeviceCode, nil
	case "refresh", string(GrantRefreshToken):
		return GrantRefreshToken, nil
	}
	return "", fmt.Errorf("unsupported grant type %q", s)
}
