package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"cupsoauth/pkg/logging"
)

const (
	configDirName  = "cups-oauth"
	configFileName = "config.yaml"
)

// osUserConfigDir is a variable so tests can redirect the default directory.
var osUserConfigDir = os.UserConfigDir

// DefaultConfigDir returns the directory config.yaml is read from when no
// --config-path is given.
func DefaultConfigDir() (string, error) {
	dir, err := osUserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(dir, configDirName), nil
}

// LoadConfig loads config.yaml from configPath. A missing file yields the
// defaults; a malformed or invalid file is an error.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, NewConfigurationError(configFilePath, "io", "failed to read configuration file").
			WithDetails(err.Error()).
			WithSuggestions("Check the file permissions of " + configFilePath)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "parse", "malformed YAML").
			WithDetails(err.Error()).
			WithLine(yamlErrorLine(err)).
			WithSuggestions(
				"Check indentation and quoting near the reported line",
				"Durations use Go syntax, e.g. 60s or 2m",
			)
	}
	config.ApplyDefaults()

	if verrs := config.Validate(); verrs.HasErrors() {
		collection := NewConfigurationErrorCollection()
		for _, ve := range verrs {
			collection.Add(ve.toConfigurationError(configFilePath))
		}
		return Config{}, *collection
	}

	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

func yamlErrorLine(err error) int {
	m := yamlLineRegex.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
