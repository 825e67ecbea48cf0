// Package config loads the cups-oauth client configuration.
//
// Configuration is read from a single YAML file, config.yaml, in the
// configuration directory:
//
//	Default location: $XDG_CONFIG_HOME/cups-oauth (os.UserConfigDir)
//	Custom location:  --config-path flag
//
// A missing file is not an error; the defaults from GetDefaultConfig apply.
// A malformed or invalid file yields ConfigurationError values carrying the
// offending field, the YAML line when known, and suggestions for a fix.
//
// # File Format
//
//	authURI: https://auth.example.com
//	resourceURI: ipps://printer.example.com/ipp/print
//	scopes: openid print
//	redirectURI: http://127.0.0.1:10080/
//	callbackTimeout: 90s
//	httpTimeout: 30s
//	logLevel: debug
//	logFormat: json
//
// Command-line flags override any value set in the file.
package config
