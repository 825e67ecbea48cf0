package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ConfigurationError describes one problem with config.yaml.
type ConfigurationError struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	// Field is the offending key; empty for problems with the file as a whole.
	Field string `json:"field"`
	// ErrorType is "io", "parse" or "validation".
	ErrorType   string   `json:"errorType"`
	Message     string   `json:"message"`
	Details     string   `json:"details"`
	LineNumber  int      `json:"lineNumber"`
	Suggestions []string `json:"suggestions"`
}

// Error renders the error compiler style: file[:line][: field]: message.
func (ce ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(ce.FileName)
	if ce.LineNumber > 0 {
		fmt.Fprintf(&b, ":%d", ce.LineNumber)
	}
	if ce.Field != "" {
		b.WriteString(": ")
		b.WriteString(ce.Field)
	}
	b.WriteString(": ")
	b.WriteString(ce.Message)
	return b.String()
}

// DetailedError renders every known fact about the error on its own line,
// followed by the suggestions.
func (ce ConfigurationError) DetailedError() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration error (%s) in %s\n", ce.ErrorType, ce.FilePath)

	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s: %s\n", label, value)
		}
	}
	row("Field", ce.Field)
	if ce.LineNumber > 0 {
		row("Line", fmt.Sprint(ce.LineNumber))
	}
	row("Error", ce.Message)
	row("Details", ce.Details)

	if len(ce.Suggestions) > 0 {
		b.WriteString("  Suggestions:\n")
		for _, s := range ce.Suggestions {
			fmt.Fprintf(&b, "    - %s\n", s)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// WithDetails returns a copy of ce with Details set.
func (ce ConfigurationError) WithDetails(details string) ConfigurationError {
	ce.Details = details
	return ce
}

// WithLine returns a copy of ce with LineNumber set.
func (ce ConfigurationError) WithLine(line int) ConfigurationError {
	ce.LineNumber = line
	return ce
}

// WithSuggestions returns a copy of ce with the suggestions appended.
func (ce ConfigurationError) WithSuggestions(suggestions ...string) ConfigurationError {
	ce.Suggestions = append(append([]string(nil), ce.Suggestions...), suggestions...)
	return ce
}

// ConfigurationErrorCollection is returned when validation finds several problems at once.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

func (cec ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	default:
		return fmt.Sprintf("%d configuration errors, first: %s", len(cec.Errors), cec.Errors[0].Error())
	}
}

func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// GetDetailedReport joins the DetailedError of every entry, numbered.
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d problem(s) found in configuration:\n", len(cec.Errors))
	for i, err := range cec.Errors {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, err.DetailedError())
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewConfigurationError creates an error for filePath without field or line.
func NewConfigurationError(filePath, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		FileName:  filepath.Base(filePath),
		ErrorType: errorType,
		Message:   message,
	}
}

func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{}
}
