package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	tempFilePath := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(tempFilePath, []byte(content), 0600))
	return tempFilePath
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	loaded, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	createTempConfigFile(t, dir, `
authURI: https://auth.example.com
resourceURI: ipps://printer.example.com/ipp/print
scopes: openid print
redirectURI: http://127.0.0.1:10080/
callbackTimeout: 90s
logLevel: debug
`)

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com", loaded.AuthURI)
	assert.Equal(t, "ipps://printer.example.com/ipp/print", loaded.ResourceURI)
	assert.Equal(t, "openid print", loaded.Scopes)
	assert.Equal(t, "http://127.0.0.1:10080/", loaded.RedirectURI)
	assert.Equal(t, 90*time.Second, loaded.CallbackTimeout)
	assert.Equal(t, DefaultHTTPTimeout, loaded.HTTPTimeout)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.Equal(t, DefaultLogFormat, loaded.LogFormat)
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := createTempConfigFile(t, dir, "authURI: https://auth.example.com\n  scopes: [unterminated\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)

	var ce ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "parse", ce.ErrorType)
	assert.Equal(t, path, ce.FilePath)
	assert.Equal(t, configFileName, ce.FileName)
	assert.NotEmpty(t, ce.Suggestions)
	assert.Contains(t, ce.DetailedError(), "Suggestions:")
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	createTempConfigFile(t, dir, `
authURI: http://auth.example.com
redirectURI: http://printer.example.com/
httpTimeout: -5s
logFormat: xml
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)

	var collection ConfigurationErrorCollection
	require.ErrorAs(t, err, &collection)
	assert.Equal(t, 4, collection.Count())

	fields := make([]string, 0, collection.Count())
	for _, ce := range collection.Errors {
		fields = append(fields, ce.Field)
		assert.Equal(t, "validation", ce.ErrorType)
		assert.Len(t, ce.Suggestions, 1, ce.Field)
	}
	assert.ElementsMatch(t, []string{"authURI", "redirectURI", "httpTimeout", "logFormat"}, fields)
	assert.Contains(t, collection.GetDetailedReport(), "Field: authURI")
	assert.Contains(t, err.Error(), "4 configuration errors")
}

func TestLoadConfig_Unreadable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, configFileName), 0700))

	_, err := LoadConfig(dir)
	var ce ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "io", ce.ErrorType)
}

func TestDefaultConfigDir(t *testing.T) {
	original := osUserConfigDir
	defer func() { osUserConfigDir = original }()

	osUserConfigDir = func() (string, error) { return "/home/test/.config", nil }
	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/test/.config", "cups-oauth"), dir)

	osUserConfigDir = func() (string, error) { return "", os.ErrNotExist }
	_, err = DefaultConfigDir()
	assert.Error(t, err)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.AuthURI = "https://auth.example.com"

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "callbackTimeout: 1m0s")
	assert.NotContains(t, string(data), "resourceURI")

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg, decoded)
}
