package domain

import "time"

// CachePolicy bounds the on-disk cache. Zero values mean unlimited or
// unchecked.
type CachePolicy struct {
	// MaxSize is the ceiling on the cumulative size of resident blobs.
	MaxSize int64

	// MinFreeSpace is the free space that must remain on the cache's
	// filesystem.
	MinFreeSpace int64

	// MaxItems is the ceiling on the number of resident blobs.
	MaxItems int
}

// CacheStats accumulates diagnostics counters for one cache session.
// The counters are informational only and carry no correctness weight.
type CacheStats struct {
	Hits         int
	Misses       int
	BytesAdded   int64
	BytesRemoved int64
	TimeFetching time.Duration
}

// Config holds the resolved run configuration, merged from the optional
// config file and CLI flags.
type Config struct {
	Remote   string
	CacheDir string
	Policy   CachePolicy
}
