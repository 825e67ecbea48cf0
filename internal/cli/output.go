package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

// OutputFormat represents the supported document output formats.
type OutputFormat string

const (
	// OutputFormatJSON prints the document as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML prints the document as YAML converted from JSON
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: json, yaml)", format)
	}
}

// WriteDocument writes a raw JSON document to w in the requested format.
func WriteDocument(w io.Writer, raw []byte, format OutputFormat) error {
	switch format {
	case OutputFormatYAML:
		out, err := yaml.JSONToYAML(raw)
		if err != nil {
			return fmt.Errorf("failed to convert document to YAML: %w", err)
		}
		_, err = w.Write(out)
		return err
	case OutputFormatJSON, "":
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("failed to format JSON document: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	default:
		return ValidateOutputFormat(string(format))
	}
}

// WriteValue marshals v to JSON and writes it like WriteDocument.
func WriteValue(w io.Writer, v interface{}, format OutputFormat) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return WriteDocument(w, raw, format)
}
