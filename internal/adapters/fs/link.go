// Package fs provides the filesystem primitives for materializing and
// tearing down scratch trees.
package fs

import (
	"io"
	"os"

	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/zerr"
)

// linkStrategy is one way of making src's content appear at dst.
type linkStrategy struct {
	name string
	fn   func(src, dst string) error
}

// strategies are tried in order; copy is the universal fallback. Hardlinks
// win when src and dst share a filesystem, symlinks when they don't but the
// platform supports them.
var strategies = []linkStrategy{
	{"hardlink", os.Link},
	{"symlink", os.Symlink},
	{"copy", copyFile},
}

// LinkFile makes the content of src appear at dst using the first strategy
// that succeeds.
func LinkFile(src, dst string) error {
	var lastErr error
	for _, s := range strategies {
		err := s.fn(src, dst)
		if err == nil {
			return nil
		}
		lastErr = zerr.With(zerr.Wrap(err, "failed to link file"), "strategy", s.name)
	}
	return lastErr
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, domain.FilePerm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
