package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cupsoauth/internal/config"
)

// CommandFlags holds the flag values shared by every cups-oauth command.
// Values left unset fall back to config.yaml and then to the defaults.
type CommandFlags struct {
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
	// AuthURI is the authorization server URI
	AuthURI string
	// ResourceURI is the printer or resource the tokens are for
	ResourceURI string
	// Scopes is a space-delimited scope list
	Scopes string
	// RedirectURI pins the loopback redirect URI
	RedirectURI string
	// StoreDir overrides the credential cache directory
	StoreDir string
	// CallbackTimeout bounds the wait for the browser redirect
	CallbackTimeout time.Duration
	// HTTPTimeout bounds each request to the authorization server
	HTTPTimeout time.Duration
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables debug logging
	Debug bool
	// LogFormat selects text or json log output
	LogFormat string
}

// RegisterCommonFlags registers the persistent flags on the root command.
//
// The registered flags are:
//   - --config-path: Configuration directory
//   - --auth-uri/-a: Authorization server URI
//   - --resource-uri/-r: Resource (printer) URI
//   - --scopes/-s: Requested scopes
//   - --redirect-uri: Fixed loopback redirect URI
//   - --store-dir: Credential cache directory
//   - --callback-timeout, --http-timeout
//   - --quiet/-q, --debug, --log-format
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config-path", "", "Configuration directory (default is $XDG_CONFIG_HOME/cups-oauth)")
	pf.StringVarP(&flags.AuthURI, "auth-uri", "a", "", "Authorization server URI")
	pf.StringVarP(&flags.ResourceURI, "resource-uri", "r", "", "Resource (printer) URI the tokens are requested for")
	pf.StringVarP(&flags.Scopes, "scopes", "s", "", "Space-delimited scopes (default is the server's advertised scopes)")
	pf.StringVar(&flags.RedirectURI, "redirect-uri", "", "Fixed loopback redirect URI (default is an ephemeral port)")
	pf.StringVar(&flags.StoreDir, "store-dir", "", "Credential cache directory")
	pf.DurationVar(&flags.CallbackTimeout, "callback-timeout", 0, "How long to wait for the browser redirect")
	pf.DurationVar(&flags.HTTPTimeout, "http-timeout", 0, "Timeout for requests to the authorization server")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	pf.StringVar(&flags.LogFormat, "log-format", "", "Log format (text, json)")
}

// Resolve loads config.yaml and applies every flag the user set on cmd.
// The result is validated again after the overrides.
func (f *CommandFlags) Resolve(cmd *cobra.Command) (config.Config, error) {
	configPath := f.ConfigPath
	if configPath == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return config.Config{}, err
		}
		configPath = dir
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("auth-uri") {
		cfg.AuthURI = f.AuthURI
	}
	if changed("resource-uri") {
		cfg.ResourceURI = f.ResourceURI
	}
	if changed("scopes") {
		cfg.Scopes = f.Scopes
	}
	if changed("redirect-uri") {
		cfg.RedirectURI = f.RedirectURI
	}
	if changed("store-dir") {
		cfg.StoreDir = f.StoreDir
	}
	if changed("callback-timeout") {
		cfg.CallbackTimeout = f.CallbackTimeout
	}
	if changed("http-timeout") {
		cfg.HTTPTimeout = f.HTTPTimeout
	}
	if changed("log-format") {
		cfg.LogFormat = f.LogFormat
	}
	if f.Debug {
		cfg.LogLevel = "debug"
	}
	cfg.ApplyDefaults()

	if errs := cfg.Validate(); errs.HasErrors() {
		return config.Config{}, fmt.Errorf("invalid flags: %w", errs)
	}
	return cfg, nil
}
