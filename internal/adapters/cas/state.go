package cas

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
)

// loadState reads the persisted LRU order (oldest first) from the state
// file. A missing, unreadable, or malformed file yields an empty state:
// the cache is a performance optimization, so corruption is repaired by
// starting over, never by failing the run.
func loadState(path string, log ports.Logger) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("unreadable cache state, starting empty: " + err.Error())
		}
		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		log.Warn("malformed cache state, starting empty: " + err.Error())
		return nil
	}

	// Drop duplicates defensively, keeping the most recent position.
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if _, ok := seen[ids[i]]; ok {
			continue
		}
		seen[ids[i]] = struct{}{}
		out = append(out, ids[i])
	}
	// out is reversed; restore oldest-first order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// saveState atomically rewrites the state file via a temp file and rename.
func saveState(path string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheStateWriteFailed.Error())
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "state_*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheStateWriteFailed.Error())
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.Wrap(err, domain.ErrCacheStateWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.Wrap(err, domain.ErrCacheStateWriteFailed.Error())
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.Wrap(err, domain.ErrCacheStateWriteFailed.Error())
	}
	return nil
}
