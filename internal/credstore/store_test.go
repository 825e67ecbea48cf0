package credstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAuthURI     = "https://auth.example.com"
	testResourceURI = "ipps://printer.example.com/ipp/print"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "oauth"))
}

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestMakePath_Format(t *testing.T) {
	s := newTestStore(t)

	path, err := s.MakePath(testAuthURI, "", KindMetadata)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), sha("auth.example.com:443")+".meta"), path)

	path, err = s.MakePath(testAuthURI, testResourceURI, KindAccessToken)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), sha("auth.example.com:443")+"+"+sha("printer.example.com:631")+".accs"), path)

	assert.NotContains(t, path, "example.com")
}

func TestMakePath_Deterministic(t *testing.T) {
	s := newTestStore(t)

	a, err := s.MakePath(testAuthURI, testResourceURI, KindNonce)
	require.NoError(t, err)
	b, err := s.MakePath(testAuthURI, testResourceURI, KindNonce)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMakePath_AuthorityOnly(t *testing.T) {
	s := newTestStore(t)

	base, err := s.MakePath(testAuthURI, testResourceURI, KindRefreshToken)
	require.NoError(t, err)

	equivalent := []struct{ auth, resource string }{
		{"https://auth.example.com/", "ipps://printer.example.com/ipp/print"},
		{"https://AUTH.Example.com/realms/cups?x=1", "ipps://printer.example.com:631/other"},
		{"https://auth.example.com:443/a/b", "ipps://PRINTER.example.com/ipp/faxout?job=1"},
	}
	for _, e := range equivalent {
		got, err := s.MakePath(e.auth, e.resource, KindRefreshToken)
		require.NoError(t, err)
		assert.Equal(t, base, got, "%s + %s", e.auth, e.resource)
	}

	different := []struct{ auth, resource string }{
		{"https://auth.example.com:8443", testResourceURI},
		{testAuthURI, "ipps://printer.example.com:8631/ipp/print"},
		{testAuthURI, "https://printer.example.com/ipp/print"},
		{"https://other.example.com", testResourceURI},
	}
	for _, d := range different {
		got, err := s.MakePath(d.auth, d.resource, KindRefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, base, got, "%s + %s", d.auth, d.resource)
	}
}

func TestMakePath_Rejects(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name      string
		auth      string
		secondary string
		kind      Kind
	}{
		{"http auth uri", "http://auth.example.com", "", KindMetadata},
		{"ipv4 auth uri", "https://192.168.1.10", "", KindMetadata},
		{"ipv6 auth uri", "https://[::1]:8443", "", KindMetadata},
		{"decimal ipv4 auth uri", "https://2130706433/", "", KindMetadata},
		{"hex ipv4 auth uri", "https://0x7f000001/", "", KindMetadata},
		{"short ipv4 auth uri", "https://127.1:8443/", "", KindMetadata},
		{"octal ipv4 auth uri", "https://0177.0.0.1/", "", KindMetadata},
		{"empty host", "https:///path", "", KindMetadata},
		{"bad secondary scheme", testAuthURI, "ftp://printer.example.com", KindAccessToken},
		{"secondary without host", testAuthURI, "ipps:///ipp/print", KindAccessToken},
		{"unknown kind", testAuthURI, "", Kind("txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.MakePath(tt.auth, tt.secondary, tt.kind)
			assert.Error(t, err)
		})
	}
}

func TestMakePath_DigitsInHostName(t *testing.T) {
	s := newTestStore(t)

	for _, auth := range []string{"https://3com.example.com", "https://auth.1example.com", "https://example.com."} {
		_, err := s.MakePath(auth, "", KindMetadata)
		assert.NoError(t, err, auth)
	}
}

func TestMakePath_LoopbackRedirectIsAllowedAsSecondary(t *testing.T) {
	s := newTestStore(t)

	a, err := s.MakePath(testAuthURI, "http://127.0.0.1/", KindClientID)
	require.NoError(t, err)
	b, err := s.MakePath(testAuthURI, "http://127.0.0.1:80/callback", KindClientID)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(testAuthURI, testResourceURI, KindRefreshToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(testAuthURI, testResourceURI, KindRefreshToken, []byte("refresh-1")))
	data, err := s.Load(testAuthURI, testResourceURI, KindRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", string(data))

	// Overwrite truncates a longer value.
	require.NoError(t, s.SaveString(testAuthURI, testResourceURI, KindRefreshToken, "r2"))
	v, err := s.LoadString(testAuthURI, testResourceURI, KindRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r2", v)
}

func TestSave_Permissions(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(testAuthURI, "", KindMetadata, []byte(`{}`)))

	dirInfo, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	path, err := s.MakePath(testAuthURI, "", KindMetadata)
	require.NoError(t, err)

	// A pre-existing file with wider permissions is tightened on save.
	require.NoError(t, os.Chmod(path, 0644))
	require.NoError(t, s.Save(testAuthURI, "", KindMetadata, []byte(`{"issuer":"x"}`)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSave_EmptyRemoves(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(testAuthURI, testResourceURI, KindNonce, []byte("n")))
	path, err := s.MakePath(testAuthURI, testResourceURI, KindNonce)
	require.NoError(t, err)
	require.FileExists(t, path)

	require.NoError(t, s.Save(testAuthURI, testResourceURI, KindNonce, nil))
	assert.NoFileExists(t, path)

	require.NoError(t, s.SaveString(testAuthURI, testResourceURI, KindNonce, ""))
	assert.NoFileExists(t, path)

	// Removing an absent value succeeds.
	require.NoError(t, s.Remove(testAuthURI, testResourceURI, KindNonce))
}

func TestLoad_TooLarge(t *testing.T) {
	s := newTestStore(t)

	path, err := s.MakePath(testAuthURI, "", KindJWKS)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(s.Dir(), 0700))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", MaxFileSize+1)), 0600))

	_, err = s.Load(testAuthURI, "", KindJWKS)
	assert.True(t, errors.Is(err, ErrTooLarge))

	err = s.Save(testAuthURI, "", KindJWKS, []byte(strings.Repeat("x", MaxFileSize+1)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoadString_Absent(t *testing.T) {
	s := newTestStore(t)

	v, err := s.LoadString(testAuthURI, testResourceURI, KindIDToken)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestModTimeAndTouch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(t.TempDir(), WithClock(func() time.Time { return now }))

	_, err := s.ModTime(testAuthURI, "", KindMetadata)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Touch(testAuthURI, "", KindMetadata), ErrNotFound)

	require.NoError(t, s.Save(testAuthURI, "", KindMetadata, []byte(`{}`)))
	mt, err := s.ModTime(testAuthURI, "", KindMetadata)
	require.NoError(t, err)
	assert.True(t, mt.Equal(now))

	now = now.Add(5 * time.Minute)
	require.NoError(t, s.Touch(testAuthURI, "", KindMetadata))
	mt, err = s.ModTime(testAuthURI, "", KindMetadata)
	require.NoError(t, err)
	assert.True(t, mt.Equal(now))
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.Save(testAuthURI, "", KindMetadata, []byte(`{}`)))
	require.NoError(t, s.Save(testAuthURI, testResourceURI, KindAccessToken, []byte("tok\n0\n")))
	require.NoError(t, s.Save(testAuthURI, testResourceURI, KindRefreshToken, []byte("r")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "README.txt"), []byte("ignored"), 0600))

	entries, err = s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	key, err := s.Key(testAuthURI, testResourceURI)
	require.NoError(t, err)
	var kinds []Kind
	for _, e := range entries {
		if e.Name == key {
			kinds = append(kinds, e.Kind)
		}
	}
	assert.Equal(t, []Kind{KindAccessToken, KindRefreshToken}, kinds)
}
