// Package materializer turns a manifest plus an open content store into a
// populated scratch directory ready for execution.
package materializer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"go.trai.ch/isorun/internal/adapters/fs"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
)

// Materializer maps manifest entries into a scratch directory by linking
// blobs out of a content store.
type Materializer struct {
	logger ports.Logger
}

// New creates a Materializer.
func New(logger ports.Logger) *Materializer {
	return &Materializer{logger: logger}
}

// Materialize creates a scratch directory next to the store's cache
// directory and populates it from the manifest. Any missing blob is first
// pulled through the store. The scratch path is returned even when an
// error occurred after the directory was created; the caller owns its
// removal in both cases.
func (m *Materializer) Materialize(ctx context.Context, manifest *domain.Manifest, store ports.ContentStore) (string, error) {
	scratch, err := fs.MakeTempDir(store.Dir())
	if err != nil {
		return "", err
	}

	m.logger.Debug(fmt.Sprintf("materializing %d files into %s", len(manifest.Files), scratch))

	for _, relPath := range sortedPaths(manifest.Files) {
		if err := m.place(ctx, scratch, relPath, manifest.Files[relPath], store); err != nil {
			return scratch, err
		}
	}

	if manifest.RelativeCwd != "" {
		cwd := filepath.Join(scratch, filepath.FromSlash(manifest.RelativeCwd))
		if err := os.MkdirAll(cwd, domain.DirPerm); err != nil {
			return scratch, zerr.With(zerr.Wrap(err, domain.ErrMappingFailed.Error()), "relative_cwd", manifest.RelativeCwd)
		}
	}

	if manifest.ReadOnly {
		if err := fs.MakeReadOnly(scratch); err != nil {
			return scratch, zerr.Wrap(err, domain.ErrReadOnlySweepFailed.Error())
		}
	}

	return scratch, nil
}

// place maps a single manifest entry to its destination inside scratch.
func (m *Materializer) place(ctx context.Context, scratch, relPath string, entry domain.FileEntry, store ports.ContentStore) error {
	dst := filepath.Join(scratch, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrMappingFailed.Error()), "path", relPath)
	}

	if _, err := os.Lstat(dst); err == nil {
		return zerr.With(domain.ErrDestinationCollision, "path", relPath)
	}

	if entry.IsLink() {
		if err := os.Symlink(filepath.FromSlash(entry.Link), dst); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrMappingFailed.Error()), "path", relPath)
		}
		return nil
	}

	store.Retrieve(ctx, entry.Digest)

	src := store.Path(entry.Digest)
	info, err := os.Stat(src)
	if err != nil {
		return zerr.With(zerr.With(domain.ErrSourceMissing, "id", entry.Digest), "path", relPath)
	}

	if entry.Size != nil && info.Size() != *entry.Size {
		err := zerr.With(domain.ErrSizeMismatch, "id", entry.Digest)
		err = zerr.With(err, "expected", *entry.Size)
		return zerr.With(err, "actual", info.Size())
	}

	if err := fs.LinkFile(src, dst); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrMappingFailed.Error()), "path", relPath)
	}

	if entry.Mode != nil && runtime.GOOS != "windows" {
		if err := os.Chmod(dst, os.FileMode(*entry.Mode)); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrMappingFailed.Error()), "path", relPath)
		}
	}

	return nil
}

// sortedPaths returns the manifest paths in lexical order so that parent
// directories are created before their children and failures are
// deterministic.
func sortedPaths(files map[string]domain.FileEntry) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
