package materializer_test

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/isorun/internal/adapters/cas"
	"go.trai.ch/isorun/internal/adapters/fs"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/isorun/internal/adapters/remote"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/engine/materializer"
)

type env struct {
	remoteDir string
	store     *cas.Store
	mat       *materializer.Materializer
}

func newEnv(t *testing.T) *env {
	t.Helper()

	base := t.TempDir()
	remoteDir := filepath.Join(base, "remote")
	require.NoError(t, os.MkdirAll(remoteDir, 0o750))

	log := logger.New()
	store, err := cas.NewFactory(remote.NewFetcher(log), log).
		Open(filepath.Join(base, "cache"), remoteDir, domain.CachePolicy{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &env{
		remoteDir: remoteDir,
		store:     store,
		mat:       materializer.New(log),
	}
}

// addBlob stores content on the fake remote under its sha-1 digest and
// returns the digest.
func (e *env) addBlob(t *testing.T, content string) string {
	t.Helper()
	sum := sha1.Sum([]byte(content))
	id := hex.EncodeToString(sum[:])
	require.NoError(t, os.WriteFile(filepath.Join(e.remoteDir, id), []byte(content), 0o644))
	return id
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func TestMaterialize_PopulatesTree(t *testing.T) {
	env := newEnv(t)
	id := env.addBlob(t, "#!/bin/sh\nexit 0\n")

	manifest := &domain.Manifest{
		Command: []string{"./run.sh"},
		Files: map[string]domain.FileEntry{
			"run.sh":         {Digest: id, Mode: intPtr(0o750)},
			"data/input.txt": {Digest: id, Size: int64Ptr(17)},
			"alias.sh":       {Link: "run.sh"},
		},
		RelativeCwd: "work/sub",
	}

	scratch, err := env.mat.Materialize(t.Context(), manifest, env.store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(scratch) })

	// The scratch directory lives next to the cache so hardlinks stay on
	// one filesystem.
	assert.Equal(t, filepath.Dir(env.store.Dir()), filepath.Dir(scratch))

	content, err := os.ReadFile(filepath.Join(scratch, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nexit 0\n", string(content))

	content, err = os.ReadFile(filepath.Join(scratch, "data", "input.txt"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nexit 0\n", string(content))

	target, err := os.Readlink(filepath.Join(scratch, "alias.sh"))
	require.NoError(t, err)
	assert.Equal(t, "run.sh", target)

	info, err := os.Stat(filepath.Join(scratch, "work", "sub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	if runtime.GOOS != "windows" {
		info, err = os.Stat(filepath.Join(scratch, "run.sh"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
	}
}

func TestMaterialize_MissingBlobFails(t *testing.T) {
	env := newEnv(t)

	manifest := &domain.Manifest{
		Command: []string{"./run.sh"},
		Files: map[string]domain.FileEntry{
			"run.sh": {Digest: "00000000000000000000000000000000000000aa"},
		},
	}

	scratch, err := env.mat.Materialize(t.Context(), manifest, env.store)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrSourceMissing.Error())

	// The partially populated directory is handed back for cleanup.
	require.NotEmpty(t, scratch)
	t.Cleanup(func() { _ = os.RemoveAll(scratch) })
	_, statErr := os.Stat(scratch)
	assert.NoError(t, statErr)
}

func TestMaterialize_SizeMismatchFails(t *testing.T) {
	env := newEnv(t)
	id := env.addBlob(t, "short")

	manifest := &domain.Manifest{
		Command: []string{"./run.sh"},
		Files: map[string]domain.FileEntry{
			"run.sh": {Digest: id, Size: int64Ptr(9999)},
		},
	}

	scratch, err := env.mat.Materialize(t.Context(), manifest, env.store)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrSizeMismatch.Error())
	t.Cleanup(func() { _ = os.RemoveAll(scratch) })
}

func TestMaterialize_FileUnderFileFails(t *testing.T) {
	env := newEnv(t)
	id := env.addBlob(t, "payload")

	manifest := &domain.Manifest{
		Command: []string{"./run.sh"},
		Files: map[string]domain.FileEntry{
			"a":   {Digest: id},
			"a/b": {Digest: id},
		},
	}

	scratch, err := env.mat.Materialize(t.Context(), manifest, env.store)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrMappingFailed.Error())
	t.Cleanup(func() { _ = os.RemoveAll(scratch) })
}

func TestMaterialize_ReadOnlySweep(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	env := newEnv(t)
	id := env.addBlob(t, "payload")

	manifest := &domain.Manifest{
		Command:  []string{"./run.sh"},
		Files:    map[string]domain.FileEntry{"run.sh": {Digest: id}},
		ReadOnly: true,
	}

	scratch, err := env.mat.Materialize(t.Context(), manifest, env.store)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, fs.MakeWritable(scratch))
		_ = os.RemoveAll(scratch)
	})

	info, err := os.Stat(filepath.Join(scratch, "run.sh"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o222)
}
