package ports

import (
	"context"

	"go.trai.ch/isorun/internal/core/domain"
)

// ContentStore is a bounded, disk-backed set of content-addressed blobs
// with least-recently-used eviction.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ContentStore interface {
	// Retrieve makes a best effort to have the blob resident, pulling it
	// from the remote on a miss. It returns false on a hit and true when
	// a fetch was attempted; a failed fetch still returns true, so callers
	// must check that Path(id) exists before relying on it.
	Retrieve(ctx context.Context, id string) bool

	// Path returns the blob's location inside the cache directory. It does
	// not imply the file exists.
	Path(id string) string

	// Dir returns the cache directory.
	Dir() string

	// Trim evicts blobs until the cache satisfies its policy.
	Trim() error

	// Close trims and persists state. It must run on all exit paths.
	Close() error

	// Stats returns diagnostics counters for the session.
	Stats() domain.CacheStats
}
