package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
)

// removeRetries bounds the deletion attempts in RemoveTreeWithRetry. Child
// processes can transiently hold handles open after the parent saw them
// exit, most notably on Windows.
const removeRetries = 3

// MakeReadOnly strips the write bits from every file and directory under
// root. Must run only after the tree is fully populated.
func MakeReadOnly(root string) error {
	return chmodTree(root, func(mode fs.FileMode) fs.FileMode {
		return mode &^ 0o222
	})
}

// MakeWritable restores owner write permission on every file and directory
// under root so the tree can be deleted.
func MakeWritable(root string) error {
	return chmodTree(root, func(mode fs.FileMode) fs.FileMode {
		return mode | 0o200
	})
}

func chmodTree(root string, transform func(fs.FileMode) fs.FileMode) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Chmod would follow the link and touch the target.
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.Chmod(path, transform(info.Mode().Perm()))
	})
}

// RemoveTreeWithRetry deletes root recursively, restoring write permission
// and backing off between attempts. A final failure is logged but not
// returned: leaking a scratch directory degrades disk usage, not the
// correctness of the run that produced it.
func RemoveTreeWithRetry(root string, log ports.Logger) {
	delay := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		// The tree may be read-only after a read_only manifest run.
		if err := MakeWritable(root); err != nil && !os.IsNotExist(err) {
			log.Debug("failed to restore write permission on " + root + ": " + err.Error())
		}

		err := os.RemoveAll(root)
		if err == nil {
			return
		}
		if attempt >= removeRetries {
			log.Warn("leaking scratch directory " + root + ": " + err.Error())
			return
		}

		log.Debug("retrying deletion of " + root + ": " + err.Error())
		time.Sleep(delay)
		delay *= 2
	}
}

// MakeTempDir creates a scratch directory next to sibling when possible, so
// hardlinks into it stay on the cache's filesystem, and falls back to the
// system temp directory.
func MakeTempDir(sibling string) (string, error) {
	parent := filepath.Dir(sibling)
	if fi, err := os.Stat(parent); err == nil && fi.IsDir() {
		if dir, err := os.MkdirTemp(parent, domain.ScratchPrefix); err == nil {
			return dir, nil
		}
	}

	dir, err := os.MkdirTemp("", domain.ScratchPrefix)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrScratchCreateFailed.Error())
	}
	return dir, nil
}
