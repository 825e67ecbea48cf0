package auth

import "time"

// Token states reported in ServerStatus.State.
const (
	StateAuthorized    = "authorized"
	StateExpired       = "expired"
	StateNotAuthorized = "not_authorized"
)

// StatusResponse is the structured form of the status command output.
type StatusResponse struct {
	// Server is present when an authorization server is configured.
	Server *ServerStatus `json:"server,omitempty"`

	CacheDir string       `json:"cache_dir"`
	Entries  []CacheEntry `json:"entries"`
}

// ServerStatus describes the cached credentials for one authorization server
// and resource.
type ServerStatus struct {
	AuthURI     string `json:"auth_uri"`
	ResourceURI string `json:"resource_uri,omitempty"`

	// State is one of StateAuthorized, StateExpired or StateNotAuthorized.
	State string `json:"state"`

	// ExpiresAt is nil when the token has no known expiry.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// TokenPreview is the leading part of the access token.
	TokenPreview string `json:"token_preview,omitempty"`

	User     string `json:"user,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
	ClientID string `json:"client_id,omitempty"`

	RefreshAvailable bool `json:"refresh_available"`
}

// CacheEntry is one file of the credential cache.
type CacheEntry struct {
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// TokenState classifies a cached access token. A token is present only while
// unexpired; a known expiry without a token means it has lapsed.
func TokenState(token string, expires time.Time) string {
	switch {
	case token != "":
		return StateAuthorized
	case !expires.IsZero():
		return StateExpired
	default:
		return StateNotAuthorized
	}
}

// Authorized reports whether a usable access token is cached.
func (s *ServerStatus) Authorized() bool {
	return s != nil && s.State == StateAuthorized
}
