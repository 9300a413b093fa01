package remote_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/isorun/internal/adapters/remote"
	"go.trai.ch/isorun/internal/core/domain"
)

func newFetcher(t *testing.T) *remote.Fetcher {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	return remote.NewFetcher(logger.New())
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	assert.True(t, remote.IsURL("http://example.com/blob"))
	assert.True(t, remote.IsURL("https://example.com/blob"))
	assert.False(t, remote.IsURL("/var/cache/blobs"))
	assert.False(t, remote.IsURL("relative/path"))
	assert.False(t, remote.IsURL("ftp://example.com"))
}

func TestJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://example.com/base/abc", remote.Join("http://example.com/base", "abc"))
	assert.Equal(t, "http://example.com/base/abc", remote.Join("http://example.com/base/", "abc"))
	assert.Equal(t, filepath.Join("some", "dir", "abc"), remote.Join(filepath.Join("some", "dir"), "abc"))
}

func TestFetcher_FetchTo_LocalFile(t *testing.T) {
	f := newFetcher(t)
	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "src")
	require.NoError(t, os.WriteFile(src, []byte("blob content"), 0o600))

	dest := filepath.Join(tmpDir, "dest")
	require.NoError(t, f.FetchTo(t.Context(), src, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "blob content", string(data))
}

func TestFetcher_FetchTo_LocalMissingLeavesDestAbsent(t *testing.T) {
	f := newFetcher(t)
	tmpDir := t.TempDir()

	dest := filepath.Join(tmpDir, "dest")
	err := f.FetchTo(t.Context(), filepath.Join(tmpDir, "nope"), dest)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrFetchFailed.Error())

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_FetchTo_HTTP(t *testing.T) {
	f := newFetcher(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/blobs/abc" {
			_, _ = w.Write([]byte("downloaded bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	dest := filepath.Join(tmpDir, "abc")
	require.NoError(t, f.FetchTo(t.Context(), srv.URL+"/blobs/abc", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "downloaded bytes", string(data))

	// No stray temp files left behind.
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetcher_FetchTo_HTTPErrorLeavesDestAbsent(t *testing.T) {
	f := newFetcher(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tmpDir := t.TempDir()
	dest := filepath.Join(tmpDir, "missing")
	err := f.FetchTo(t.Context(), srv.URL+"/missing", dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_ReadBytes(t *testing.T) {
	f := newFetcher(t)
	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "manifest.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"command":[]}`), 0o600))

	data, err := f.ReadBytes(t.Context(), src)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":[]}`, string(data))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("remote doc"))
	}))
	defer srv.Close()

	data, err = f.ReadBytes(t.Context(), srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "remote doc", string(data))
}

func TestFetcher_ReadBytes_Missing(t *testing.T) {
	f := newFetcher(t)

	_, err := f.ReadBytes(t.Context(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrFetchFailed.Error())
}
