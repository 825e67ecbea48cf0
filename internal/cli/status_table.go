package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cupsoauth/internal/credstore"
)

// hashPrefixLen is how much of each SHA-256 name is shown.
const hashPrefixLen = 12

var kindLabels = map[credstore.Kind]string{
	credstore.KindAccessToken:  "access token",
	credstore.KindClientID:     "client id",
	credstore.KindClientSecret: "client secret",
	credstore.KindCodeVerifier: "code verifier",
	credstore.KindIDToken:      "id token",
	credstore.KindJWKS:         "signing keys",
	credstore.KindMetadata:     "metadata",
	credstore.KindNonce:        "nonce",
	credstore.KindRedirectURI:  "redirect uri",
	credstore.KindRefreshToken: "refresh token",
}

// KindLabel returns a human-readable name for a cache file kind.
func KindLabel(kind credstore.Kind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return string(kind)
}

// StatusTableOptions controls RenderStatusTable.
type StatusTableOptions struct {
	// CurrentKey highlights entries of this authorization server (credstore.Key).
	CurrentKey string
	// NoHeaders suppresses the header row.
	NoHeaders bool
	// Now is used for relative ages; zero means time.Now.
	Now time.Time
}

// RenderStatusTable writes the cache entries as a table.
func RenderStatusTable(w io.Writer, entries []credstore.Entry, opts StatusTableOptions) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "%s\n", text.FgYellow.Sprint("No cached credentials"))
		return
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	// Cells are colored already; upper-casing would corrupt the escape codes.
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	if !opts.NoHeaders {
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("SERVER"),
			text.FgHiCyan.Sprint("RESOURCE"),
			text.FgHiCyan.Sprint("KIND"),
			text.FgHiCyan.Sprint("SIZE"),
			text.FgHiCyan.Sprint("AGE"),
		})
	}

	for _, e := range entries {
		server, resource, _ := strings.Cut(e.Name, "+")
		serverCell := shortHash(server)
		if opts.CurrentKey != "" && server == opts.CurrentKey {
			serverCell = text.FgHiGreen.Sprint(serverCell + " *")
		}
		resourceCell := "-"
		if resource != "" {
			resourceCell = shortHash(resource)
		}
		t.AppendRow(table.Row{
			serverCell,
			resourceCell,
			KindLabel(e.Kind),
			e.Size,
			formatAge(now.Sub(e.ModTime)),
		})
	}

	t.AppendFooter(table.Row{"", "", text.FgHiBlue.Sprint("Total:"), len(entries), ""})
	t.Render()
}

func shortHash(h string) string {
	if len(h) > hashPrefixLen {
		return h[:hashPrefixLen]
	}
	return h
}

// formatAge renders d with a single unit, e.g. "45s", "12m", "3h", "2d".
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
