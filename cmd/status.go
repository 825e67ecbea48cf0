package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"cupsoauth/internal/cli"
	"cupsoauth/pkg/auth"
	pkgstrings "cupsoauth/pkg/strings"
)

func newStatusCmd() *cobra.Command {
	var noHeaders bool
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cached credentials",
		Long: `Show the credential cache.

When an authorization server is configured, the state of its tokens for the
resource is summarized first and its cache entries are marked in the table.
Cache files are named by hashes of the server and resource, so entries of
other servers are listed anonymously.

With --output the same information is written as a JSON or YAML document.

Examples:
  cups-oauth status
  cups-oauth status -a https://auth.example.com -r ipps://printer.example.com/ipp/print
  cups-oauth status -a https://auth.example.com -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := cli.ValidateOutputFormat(output); err != nil {
					return err
				}
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			var server *auth.ServerStatus
			var currentKey string
			if authURI := s.cfg.AuthURI; authURI != "" {
				if currentKey, err = s.store().Key(authURI, ""); err != nil {
					return err
				}
				if server, err = collectServerStatus(s, authURI); err != nil {
					return err
				}
			}

			entries, err := s.store().List()
			if err != nil {
				return err
			}

			if output != "" {
				resp := auth.StatusResponse{
					Server:   server,
					CacheDir: s.store().Dir(),
					Entries:  make([]auth.CacheEntry, 0, len(entries)),
				}
				for _, e := range entries {
					resp.Entries = append(resp.Entries, auth.CacheEntry{
						Name:       e.Name,
						Kind:       string(e.Kind),
						Size:       e.Size,
						ModifiedAt: e.ModTime.UTC(),
					})
				}
				return cli.WriteValue(s.out(), resp, cli.OutputFormat(output))
			}

			if server != nil {
				printServerStatus(s, server)
			}
			s.infof("Cache: %s\n", s.store().Dir())
			cli.RenderStatusTable(s.out(), entries, cli.StatusTableOptions{
				CurrentKey: currentKey,
				NoHeaders:  noHeaders,
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Suppress the table header row")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write a status document instead of the table (json|yaml)")
	return cmd
}

func collectServerStatus(s *session, authURI string) (*auth.ServerStatus, error) {
	resourceURI := s.cfg.ResourceURI

	token, expires, err := s.client.CopyAccessToken(authURI, resourceURI)
	if err != nil {
		return nil, s.wrap(err)
	}
	refresh, err := s.client.CopyRefreshToken(authURI, resourceURI)
	if err != nil {
		return nil, s.wrap(err)
	}
	claims, err := s.client.CopyUserID(authURI, resourceURI)
	if err != nil {
		return nil, s.wrap(err)
	}
	clientID, _, err := s.client.CopyClientID(authURI, s.cfg.RedirectURI)
	if err != nil {
		return nil, s.wrap(err)
	}

	st := &auth.ServerStatus{
		AuthURI:          authURI,
		ResourceURI:      resourceURI,
		State:            auth.TokenState(token, expires),
		TokenPreview:     pkgstrings.TokenPreview(token),
		ClientID:         clientID,
		RefreshAvailable: refresh != "",
	}
	if !expires.IsZero() {
		exp := expires.UTC()
		st.ExpiresAt = &exp
	}
	if claims != nil {
		st.User = claims.DisplayName()
		st.Subject = claims.Subject
		st.Issuer = claims.Issuer
	}
	return st, nil
}

func printServerStatus(s *session, st *auth.ServerStatus) {
	s.infof("Authorization server: %s\n", st.AuthURI)
	if st.ResourceURI != "" {
		s.infof("  Resource:  %s\n", st.ResourceURI)
	}
	switch {
	case st.State == auth.StateAuthorized && st.ExpiresAt == nil:
		s.infof("  Status:    %s\n", text.FgGreen.Sprint("Authorized (no expiry)"))
	case st.State == auth.StateAuthorized:
		s.infof("  Status:    %s\n", text.FgGreen.Sprint("Authorized"))
		s.infof("  Expires:   %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
	case st.State == auth.StateExpired:
		s.infof("  Status:    %s\n", text.FgYellow.Sprint("Expired"))
	default:
		s.infof("  Status:    %s\n", text.FgRed.Sprint("Not authorized"))
	}
	if st.TokenPreview != "" {
		s.infof("  Token:     %s\n", st.TokenPreview)
	}
	if st.User != "" {
		s.infof("  User:      %s\n", pkgstrings.Elide(st.User, 60))
	}
	if st.ClientID != "" {
		s.infof("  Client:    %s\n", st.ClientID)
	}
	if st.RefreshAvailable {
		s.infof("  Refresh:   available\n")
	}
	s.infof("\n")
}
