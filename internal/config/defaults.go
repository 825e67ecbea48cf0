package config

import "time"

const (
	// DefaultCallbackTimeout bounds the wait for the browser redirect.
	DefaultCallbackTimeout = 60 * time.Second

	// DefaultHTTPTimeout bounds each request to the authorization server.
	DefaultHTTPTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// GetDefaultConfig returns the configuration used when no file exists.
// StoreDir is left empty and resolved by the credential store.
func GetDefaultConfig() Config {
	return Config{
		CallbackTimeout: DefaultCallbackTimeout,
		HTTPTimeout:     DefaultHTTPTimeout,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
	}
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	d := GetDefaultConfig()
	if c.CallbackTimeout == 0 {
		c.CallbackTimeout = d.CallbackTimeout
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
}
