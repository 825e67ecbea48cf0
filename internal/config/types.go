package config

import "time"

// Config is the client configuration read from config.yaml. Every field is
// optional; command-line flags override what the file sets.
type Config struct {
	// AuthURI is the authorization server issuer, e.g. https://auth.example.com.
	AuthURI string `yaml:"authURI,omitempty"`

	// ResourceURI is the printer or service the tokens are requested for.
	ResourceURI string `yaml:"resourceURI,omitempty"`

	// Scopes is a space-delimited scope list. Empty means the server's
	// advertised scopes.
	Scopes string `yaml:"scopes,omitempty"`

	// RedirectURI pins the loopback redirect. Empty means an ephemeral port.
	RedirectURI string `yaml:"redirectURI,omitempty"`

	LogoURI string `yaml:"logoURI,omitempty"`
	TOSURI  string `yaml:"tosURI,omitempty"`

	// StoreDir is the credential cache directory.
	StoreDir string `yaml:"storeDir,omitempty"`

	CallbackTimeout time.Duration `yaml:"callbackTimeout,omitempty"`
	HTTPTimeout     time.Duration `yaml:"httpTimeout,omitempty"`

	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"`
}
