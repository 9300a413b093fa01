package domain

import (
	"os"
	"path/filepath"
)

const (
	// StateFileName is the name of the LRU state file inside the cache directory.
	StateFileName = "state.json"

	// DefaultCacheDirName is the cache directory used when none is configured.
	DefaultCacheDirName = "cache"

	// ConfigFileName is the name of the optional configuration file.
	ConfigFileName = "isorun.yaml"

	// ScratchPrefix is the name prefix for scratch directories.
	ScratchPrefix = "isorun-out-"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the cache directory used when neither the
// configuration file nor the flags name one.
func DefaultCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "isorun", DefaultCacheDirName)
}
