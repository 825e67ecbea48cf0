package credstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cupsoauth/pkg/logging"
)

// MaxFileSize is the largest credential file Load will read.
const MaxFileSize = 64 * 1024

const (
	dirMode  os.FileMode = 0700
	fileMode os.FileMode = 0600
)

// Kind selects the value stored in a credential file. Each kind owns a file
// extension.
type Kind string

const (
	KindAccessToken  Kind = "accs"
	KindClientID     Kind = "clid"
	KindClientSecret Kind = "csec"
	KindCodeVerifier Kind = "cver"
	KindIDToken      Kind = "idtk"
	KindJWKS         Kind = "jwks"
	KindMetadata     Kind = "meta"
	KindNonce        Kind = "nonc"
	KindRedirectURI  Kind = "ruri"
	KindRefreshToken Kind = "rfsh"
)

// Kinds lists every known kind in extension order.
var Kinds = []Kind{
	KindAccessToken, KindClientID, KindClientSecret, KindCodeVerifier, KindIDToken,
	KindJWKS, KindMetadata, KindNonce, KindRedirectURI, KindRefreshToken,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

var (
	ErrNotFound    = errors.New("credential not found")
	ErrTooLarge    = errors.New("credential file too large")
	ErrInvalidURI  = errors.New("invalid URI for credential store")
	ErrInvalidKind = errors.New("invalid credential kind")
)

// Store is the on-disk credential cache.
//
// SECURITY: This store handles OAuth secrets. The following measures apply:
//   - The storage directory is created with 0700 permissions
//   - Files are written with 0600 permissions
//   - File names are derived from SHA-256 hashes, never raw URI text
//   - Values are never logged, only the kind and the authorization server URI
//
// There is no locking between processes; whole files are written and the
// last writer wins.
type Store struct {
	dir string
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for modification times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a store rooted at dir. The directory is created lazily.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDir returns the per-user credential directory.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "cups", "oauth"), nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

var defaultPorts = map[string]string{
	"https": "443",
	"http":  "80",
	"ipps":  "631",
}

func authority(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = defaultPorts[strings.ToLower(u.Scheme)]
	}
	return strings.ToLower(u.Hostname()) + ":" + port
}

func hashAuthority(a string) string {
	sum := sha256.Sum256([]byte(a))
	return hex.EncodeToString(sum[:])
}

func authAuthority(authURI string) (string, error) {
	u, err := url.Parse(authURI)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return "", fmt.Errorf("%w: authorization server %q must use https", ErrInvalidURI, authURI)
	}
	host := u.Hostname()
	if host == "" || strings.HasPrefix(u.Host, "[") || net.ParseIP(host) != nil || numericHost(host) {
		return "", fmt.Errorf("%w: authorization server %q must use a DNS host name", ErrInvalidURI, authURI)
	}
	return authority(u), nil
}

// numericHost reports whether a resolver could read host as an IPv4 address
// in one of the legacy spellings (2130706433, 0x7f000001, 127.1). Those end
// in a label starting with a digit; no top-level domain does.
func numericHost(host string) bool {
	host = strings.TrimSuffix(host, ".")
	last := host[strings.LastIndexByte(host, '.')+1:]
	return last != "" && last[0] >= '0' && last[0] <= '9'
}

func secondaryAuthority(secondaryURI string) (string, error) {
	u, err := url.Parse(secondaryURI)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ipps":
	default:
		return "", fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidURI, secondaryURI)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURI, secondaryURI)
	}
	return authority(u), nil
}

// MakePath returns the file that holds kind for the given authorization server
// and optional secondary (resource or redirect) URI.
//
// Only the host and port of each URI participate in the name, so paths and
// query strings map to the same file.
func (s *Store) MakePath(authURI, secondaryURI string, kind Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	auth, err := authAuthority(authURI)
	if err != nil {
		return "", err
	}

	name := hashAuthority(auth)
	if secondaryURI != "" {
		secondary, err := secondaryAuthority(secondaryURI)
		if err != nil {
			return "", err
		}
		name += "+" + hashAuthority(secondary)
	}

	return filepath.Join(s.dir, name+"."+string(kind)), nil
}

// Load reads the value of kind. It returns ErrNotFound when nothing is stored.
func (s *Store) Load(authURI, secondaryURI string, kind Kind) ([]byte, error) {
	path, err := s.MakePath(authURI, secondaryURI, kind)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	if len(data) > MaxFileSize {
		logging.Warn("CredStore", "Refusing oversized %s file for %s", kind, authURI)
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	return data, nil
}

// LoadString is Load returning a string with surrounding whitespace removed.
// An absent value is returned as "" with a nil error.
func (s *Store) LoadString(authURI, secondaryURI string, kind Kind) (string, error) {
	data, err := s.Load(authURI, secondaryURI, kind)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ModTime returns the modification time of the stored value.
func (s *Store) ModTime(authURI, secondaryURI string, kind Kind) (time.Time, error) {
	path, err := s.MakePath(authURI, secondaryURI, kind)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Touch marks the stored value as fresh without changing its content.
func (s *Store) Touch(authURI, secondaryURI string, kind Kind) error {
	path, err := s.MakePath(authURI, secondaryURI, kind)
	if err != nil {
		return err
	}
	now := s.now()
	if err := os.Chtimes(path, now, now); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to touch credential file: %w", err)
	}
	return nil
}

// Save writes data as the value of kind. Empty data removes the file.
// SECURITY: Values are never logged.
func (s *Store) Save(authURI, secondaryURI string, kind Kind, data []byte) error {
	if len(data) == 0 {
		return s.Remove(authURI, secondaryURI, kind)
	}
	if len(data) > MaxFileSize {
		return ErrTooLarge
	}

	path, err := s.MakePath(authURI, secondaryURI, kind)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	if err := writeFile(path, data); err != nil {
		logging.Audit("credential_store_failed",
			slog.String("kind", string(kind)),
			slog.String("auth_uri", authURI),
			slog.String("error", err.Error()),
		)
		return err
	}

	now := s.now()
	if err := os.Chtimes(path, now, now); err != nil {
		logging.Debug("CredStore", "Failed to set modification time on %s: %v", filepath.Base(path), err)
	}

	logging.Audit("credential_stored",
		slog.String("kind", string(kind)),
		slog.String("auth_uri", authURI),
		slog.Int("length", len(data)),
	)
	return nil
}

// SaveString saves a string value; "" removes the file.
func (s *Store) SaveString(authURI, secondaryURI string, kind Kind, value string) error {
	return s.Save(authURI, secondaryURI, kind, []byte(value))
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("failed to open credential file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	// An existing file keeps its old mode on truncate.
	return os.Chmod(path, fileMode)
}

// Remove deletes the value of kind. Removing an absent value is not an error.
func (s *Store) Remove(authURI, secondaryURI string, kind Kind) error {
	path, err := s.MakePath(authURI, secondaryURI, kind)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove credential file: %w", err)
	}

	logging.Audit("credential_removed",
		slog.String("kind", string(kind)),
		slog.String("auth_uri", authURI),
	)
	return nil
}

// Entry describes one file in the store.
type Entry struct {
	Name    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// List returns the files in the store sorted by name. A missing directory
// yields an empty list.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credential directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(de.Name()), ".")
		kind := Kind(ext)
		if !kind.Valid() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    strings.TrimSuffix(de.Name(), "."+ext),
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name == entries[j].Name {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Key returns the hashed file-name stem for the pair, as shown by List.
func (s *Store) Key(authURI, secondaryURI string) (string, error) {
	path, err := s.MakePath(authURI, secondaryURI, KindMetadata)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(filepath.Base(path), "."+string(KindMetadata)), nil
}
