// Package app implements the application layer for isorun.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.trai.ch/isorun/internal/adapters/cas"
	"go.trai.ch/isorun/internal/adapters/fs"
	"go.trai.ch/isorun/internal/adapters/remote"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/isorun/internal/engine/materializer"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	fetcher      ports.Fetcher
	storeFactory *cas.Factory
	materializer *materializer.Materializer
	runner       ports.Runner
	logger       ports.Logger
	stdout       io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	fetcher ports.Fetcher,
	storeFactory *cas.Factory,
	mat *materializer.Materializer,
	runner ports.Runner,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		fetcher:      fetcher,
		storeFactory: storeFactory,
		materializer: mat,
		runner:       runner,
		logger:       log,
		stdout:       os.Stdout,
	}
}

// WithStdout redirects the App's own output stream. The child command's
// streams are unaffected. This is primarily used for testing.
func (a *App) WithStdout(w io.Writer) *App {
	a.stdout = w
	return a
}

// RunOptions carries the flag values for a single run invocation. Zero
// values defer to the configuration file.
type RunOptions struct {
	// ManifestPath is a local path or URL of the manifest document.
	ManifestPath string

	// Hash is a manifest digest to resolve against the remote.
	Hash string

	Remote   string
	CacheDir string
	Policy   domain.CachePolicy

	// NoRun stops after materialization and keeps the scratch directory.
	NoRun bool
}

// Run materializes the manifest into a scratch directory and executes its
// command. It returns the child's exit code when err is nil.
func (a *App) Run(ctx context.Context, opts RunOptions) (int, error) {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return 0, err
	}

	if cfg.Remote == "" {
		return 0, domain.ErrRemoteRequired
	}
	if opts.ManifestPath == "" && opts.Hash == "" {
		return 0, domain.ErrNoManifestSpecified
	}

	manifest, err := a.loadManifest(ctx, cfg.Remote, opts)
	if err != nil {
		return 0, err
	}

	store, err := a.storeFactory.Open(cfg.CacheDir, cfg.Remote, cfg.Policy)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			a.logger.Error(zerr.Wrap(closeErr, "failed to close cache"))
		}
		a.logStats(store.Stats())
	}()

	scratch, err := a.materializer.Materialize(ctx, manifest, store)
	if err != nil {
		if scratch != "" {
			fs.RemoveTreeWithRetry(scratch, a.logger)
		}
		return 0, err
	}

	if opts.NoRun {
		a.logger.Info("keeping scratch directory for inspection")
		_, _ = fmt.Fprintln(a.stdout, scratch)
		return 0, nil
	}

	return a.runner.Run(ctx, manifest, scratch)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	CacheDir string
}

// Clean removes the cache directory, including its state file.
func (a *App) Clean(_ context.Context, opts CleanOptions) error {
	cfg, err := a.loadConfig(RunOptions{CacheDir: opts.CacheDir})
	if err != nil {
		return err
	}

	a.logger.Info("removing cache " + cfg.CacheDir)
	if err := os.RemoveAll(cfg.CacheDir); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCleanFailed.Error()), "cache", cfg.CacheDir)
	}
	return nil
}

// loadConfig reads the optional configuration file and overlays the flag
// values. Flags win over the file; the cache directory falls back to the
// user cache location.
func (a *App) loadConfig(opts RunOptions) (domain.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return domain.Config{}, zerr.Wrap(err, "failed to determine working directory")
	}

	loaded, err := a.configLoader.Load(cwd)
	if err != nil {
		return domain.Config{}, zerr.Wrap(err, "failed to load configuration")
	}

	merged := domain.Config{}
	if loaded != nil {
		merged = *loaded
	}
	if opts.Remote != "" {
		merged.Remote = opts.Remote
	}
	if opts.CacheDir != "" {
		merged.CacheDir = opts.CacheDir
	}
	if opts.Policy.MaxSize > 0 {
		merged.Policy.MaxSize = opts.Policy.MaxSize
	}
	if opts.Policy.MinFreeSpace > 0 {
		merged.Policy.MinFreeSpace = opts.Policy.MinFreeSpace
	}
	if opts.Policy.MaxItems > 0 {
		merged.Policy.MaxItems = opts.Policy.MaxItems
	}
	if merged.CacheDir == "" {
		merged.CacheDir = domain.DefaultCachePath()
	}

	return merged, nil
}

// loadManifest fetches and parses the manifest document, either from an
// explicit path or URL, or by digest relative to the remote.
func (a *App) loadManifest(ctx context.Context, remoteBase string, opts RunOptions) (*domain.Manifest, error) {
	ref := opts.ManifestPath
	if ref == "" {
		ref = remote.Join(remoteBase, opts.Hash)
	}

	data, err := a.fetcher.ReadBytes(ctx, ref)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestLoadFailed.Error()), "ref", ref)
	}

	return domain.ParseManifest(data)
}

func (a *App) logStats(stats domain.CacheStats) {
	a.logger.Debug(fmt.Sprintf(
		"cache session: %d hits, %d misses, %s added, %s removed, %s fetching",
		stats.Hits,
		stats.Misses,
		humanize.Bytes(uint64(max(stats.BytesAdded, 0))),
		humanize.Bytes(uint64(max(stats.BytesRemoved, 0))),
		stats.TimeFetching.Round(time.Millisecond),
	))
}
