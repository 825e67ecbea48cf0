package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

func (ve ValidationError) toConfigurationError(filePath string) ConfigurationError {
	ce := NewConfigurationError(filePath, "validation", ve.Message)
	ce.Field = ve.Field
	if ve.Value != nil {
		ce.Details = fmt.Sprintf("got %v", ve.Value)
	}
	if ve.Suggestion != "" {
		ce.Suggestions = []string{ve.Suggestion}
	}
	return ce
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// add appends err when it is a ValidationError.
func (ve *ValidationErrors) add(err error, suggestion string) {
	if err == nil {
		return
	}
	v, ok := err.(ValidationError)
	if !ok {
		v = ValidationError{Message: err.Error()}
	}
	v.Suggestion = suggestion
	*ve = append(*ve, v)
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if strings.EqualFold(value, allowedValue) {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateURL checks that a non-empty value is an absolute URL with a host
// and one of the given schemes.
func ValidateURL(field, value string, schemes ...string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return ValidationError{Field: field, Value: value, Message: "must be an absolute URL"}
	}
	if err := ValidateOneOf(field, u.Scheme, schemes); err != nil {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("scheme must be one of: %s", strings.Join(schemes, ", ")),
		}
	}
	return nil
}

// ValidateNonNegative checks that a duration is not negative.
func ValidateNonNegative(field string, value time.Duration) error {
	if value < 0 {
		return ValidationError{Field: field, Value: value, Message: "must not be negative"}
	}
	return nil
}

// ValidateLoopback checks that a non-empty redirect URI targets a loopback
// address over plain http.
func ValidateLoopback(field, value string) error {
	if err := ValidateURL(field, value, "http"); err != nil || value == "" {
		return err
	}
	u, _ := url.Parse(value)
	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return ValidationError{Field: field, Value: value, Message: "must use a loopback host"}
}

// Validate checks every field and returns all problems found.
func (c Config) Validate() ValidationErrors {
	var errs ValidationErrors

	errs.add(ValidateURL("authURI", c.AuthURI, "https"),
		"Use the https issuer URL of the authorization server, e.g. https://auth.example.com")
	errs.add(ValidateURL("resourceURI", c.ResourceURI, "http", "https", "ipps"),
		"Use the printer URI, e.g. ipps://printer.example.com/ipp/print")
	errs.add(ValidateLoopback("redirectURI", c.RedirectURI),
		"Use http://127.0.0.1:<port>/ or leave redirectURI empty for an ephemeral port")
	errs.add(ValidateURL("logoURI", c.LogoURI, "http", "https"), "Use an absolute http(s) URL")
	errs.add(ValidateURL("tosURI", c.TOSURI, "http", "https"), "Use an absolute http(s) URL")
	errs.add(ValidateNonNegative("callbackTimeout", c.CallbackTimeout), "Use a duration such as 60s")
	errs.add(ValidateNonNegative("httpTimeout", c.HTTPTimeout), "Use a duration such as 30s")
	if c.LogLevel != "" {
		errs.add(ValidateOneOf("logLevel", c.LogLevel, []string{"debug", "info", "warn", "warning", "error"}),
			"Remove logLevel to use info")
	}
	if c.LogFormat != "" {
		errs.add(ValidateOneOf("logFormat", c.LogFormat, []string{"text", "json"}),
			"Remove logFormat to use text")
	}

	return errs
}
