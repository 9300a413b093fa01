// Package config provides the optional configuration file loader for isorun.
package config

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the nearest isorun.yaml at or above cwd. A missing file is
// not an error; it yields nil.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	path := findConfiguration(cwd)
	if path == "" {
		return nil, nil
	}

	l.logger.Debug("using configuration " + path)

	data, err := os.ReadFile(path) // #nosec G304 -- path discovered by walking up from cwd
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	cfg := &domain.Config{
		Remote:   schema.Remote,
		CacheDir: schema.Cache,
		Policy:   domain.CachePolicy{MaxItems: schema.Policy.MaxItems},
	}

	if cfg.Policy.MaxSize, err = parseSize(schema.Policy.MaxSize); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "field", "max_size")
	}
	if cfg.Policy.MinFreeSpace, err = parseSize(schema.Policy.MinFreeSpace); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "field", "min_free_space")
	}

	// A relative cache dir in the file is anchored at the file's directory,
	// not at whatever cwd the tool happens to run from.
	if cfg.CacheDir != "" && !filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDir = filepath.Join(filepath.Dir(path), cfg.CacheDir)
	}

	return cfg, nil
}

// findConfiguration walks from cwd to the filesystem root looking for the
// configuration file. It returns "" when none exists.
func findConfiguration(cwd string) string {
	currentDir := cwd
	for {
		path := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return ""
		}
		currentDir = parentDir
	}
}

// parseSize converts a human readable size such as "20GB" to bytes.
// An empty string means the budget is unset.
func parseSize(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, zerr.With(err, "value", value)
	}
	return int64(n), nil //nolint:gosec // cache budgets stay far below MaxInt64
}
