// Package cas implements the content-addressed blob store with
// least-recently-used eviction.
package cas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"go.trai.ch/isorun/internal/adapters/remote"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
)

// Factory builds Store instances from the static adapters. The per-run
// parameters (directory, remote, policy) arrive at Open time.
type Factory struct {
	fetcher ports.Fetcher
	logger  ports.Logger
}

// NewFactory creates a new Factory.
func NewFactory(fetcher ports.Fetcher, logger ports.Logger) *Factory {
	return &Factory{fetcher: fetcher, logger: logger}
}

// Store is a directory of content-addressed blobs plus a persisted LRU
// order. One Store instance assumes exclusive access to its directory;
// concurrent processes sharing a cache directory must serialize outside.
type Store struct {
	dir     string
	remote  string
	policy  domain.CachePolicy
	fetcher ports.Fetcher
	logger  ports.Logger

	// lru holds resident blob ids, oldest first.
	lru   []string
	stats domain.CacheStats

	// diskFree is swapped in tests.
	diskFree func(path string) (uint64, error)
}

// Open creates the cache directory if needed, loads the persisted state,
// reconciles it against the directory contents, and trims to policy so the
// cache starts within budget even if the policy changed since last run.
func (f *Factory) Open(dir, remoteBase string, policy domain.CachePolicy) (*Store, error) {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheCreateFailed.Error()), "dir", dir)
	}

	s := &Store{
		dir:      dir,
		remote:   remoteBase,
		policy:   policy,
		fetcher:  f.fetcher,
		logger:   f.logger,
		lru:      loadState(filepath.Join(dir, domain.StateFileName), f.logger),
		diskFree: freeSpace,
	}

	if err := s.Trim(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the blob's location inside the cache directory. It does not
// imply the file exists.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id)
}

// Dir returns the cache directory the store was opened on.
func (s *Store) Dir() string {
	return s.dir
}

// Stats returns the diagnostics counters accumulated so far.
func (s *Store) Stats() domain.CacheStats {
	return s.stats
}

// Retrieve makes a best effort to have the blob resident. A hit moves the
// blob to the most-recently-used position and returns false. A miss fetches
// from the remote and returns true whether or not the fetch succeeded; a
// failed fetch is logged and simply leaves the blob absent, to be surfaced
// by the materializer when the file is actually needed.
func (s *Store) Retrieve(ctx context.Context, id string) bool {
	if i := slices.Index(s.lru, id); i >= 0 {
		s.lru = append(slices.Delete(s.lru, i, i+1), id)
		s.stats.Hits++
		s.persist()
		return false
	}

	s.stats.Misses++
	ref := remote.Join(s.remote, id)

	start := time.Now()
	err := s.fetcher.FetchTo(ctx, ref, s.Path(id))
	s.stats.TimeFetching += time.Since(start)

	if err != nil {
		s.logger.Error(zerr.With(err, "blob", id))
		return true
	}

	if fi, statErr := os.Stat(s.Path(id)); statErr == nil {
		s.stats.BytesAdded += fi.Size()
	}
	s.lru = append(s.lru, id)
	s.persist()
	return true
}

// Trim reconciles the LRU state with the directory and then evicts
// least-recently-used blobs until every configured budget is satisfied.
// The budgets are enforced independently; an eviction for one counts
// toward the others.
func (s *Store) Trim() error {
	sizes := s.reconcile()

	if s.policy.MinFreeSpace > 0 {
		for len(s.lru) > 0 {
			free, err := s.diskFree(s.dir)
			if err != nil {
				s.logger.Warn("cannot determine free disk space: " + err.Error())
				break
			}
			if free >= uint64(s.policy.MinFreeSpace) {
				break
			}
			s.evictOldest(sizes, "free disk space")
		}
	}

	if s.policy.MaxSize > 0 {
		var total int64
		for _, size := range sizes {
			total += size
		}
		for len(s.lru) > 0 && total > s.policy.MaxSize {
			total -= sizes[s.lru[0]]
			s.evictOldest(sizes, "total size")
		}
	}

	if s.policy.MaxItems > 0 {
		for len(s.lru) > s.policy.MaxItems {
			s.evictOldest(sizes, "item count")
		}
	}

	return saveState(filepath.Join(s.dir, domain.StateFileName), s.lru)
}

// Close trims and persists. It runs on every exit path so disk usage stays
// bounded even when the enclosing run fails.
func (s *Store) Close() error {
	return s.Trim()
}

// reconcile drops ids whose backing file vanished, absorbs orphan files at
// the least-recently-used end, and returns the size of each resident blob.
func (s *Store) reconcile() map[string]int64 {
	sizes := make(map[string]int64, len(s.lru))

	kept := s.lru[:0]
	for _, id := range s.lru {
		fi, err := os.Stat(s.Path(id))
		if err != nil {
			s.logger.Info("dropping vanished cache entry " + id)
			continue
		}
		kept = append(kept, id)
		sizes[id] = fi.Size()
	}
	s.lru = kept

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("cannot scan cache directory: " + err.Error())
		return sizes
	}

	var orphans []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == domain.StateFileName {
			continue
		}
		if _, resident := sizes[name]; resident {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		orphans = append(orphans, name)
		sizes[name] = fi.Size()
	}
	if len(orphans) > 0 {
		// Orphans go to the oldest position so they are evicted first.
		sort.Strings(orphans)
		s.logger.Info(fmt.Sprintf("absorbing %d orphan cache file(s)", len(orphans)))
		s.lru = append(orphans, s.lru...)
	}

	return sizes
}

// evictOldest removes the least-recently-used blob from disk and state.
func (s *Store) evictOldest(sizes map[string]int64, reason string) {
	id := s.lru[0]
	s.lru = s.lru[1:]

	size := sizes[id]
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to evict " + id + ": " + err.Error())
		return
	}
	delete(sizes, id)
	s.stats.BytesRemoved += size
	s.logger.Info(fmt.Sprintf("evicted %s (%s) for %s", id, humanize.Bytes(uint64(size)), reason))
}

// persist rewrites the state file after every LRU mutation so an unclean
// exit loses as little recency information as possible.
func (s *Store) persist() {
	if err := saveState(filepath.Join(s.dir, domain.StateFileName), s.lru); err != nil {
		s.logger.Warn("failed to persist cache state: " + err.Error())
	}
}

func freeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
