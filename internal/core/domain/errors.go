package domain

import "go.trai.ch/zerr"

var (
	// ErrManifestParseFailed is returned when a manifest is not valid JSON.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrManifestIncomplete is returned when a manifest is missing the required command or files keys.
	ErrManifestIncomplete = zerr.New("manifest is missing required fields")

	// ErrManifestEntryInvalid is returned when a file entry has neither or both of sha-1 and link.
	ErrManifestEntryInvalid = zerr.New("file entry must have exactly one of sha-1 or link")

	// ErrManifestPathInvalid is returned when a file path is absolute or escapes the tree root.
	ErrManifestPathInvalid = zerr.New("file path must be relative and stay inside the tree")

	// ErrManifestLoadFailed is returned when the manifest itself cannot be fetched.
	ErrManifestLoadFailed = zerr.New("failed to load manifest")

	// ErrFetchFailed is returned when a blob cannot be retrieved from the remote.
	ErrFetchFailed = zerr.New("failed to fetch from remote")

	// ErrSourceMissing is returned during materialization when a required blob is absent from the cache.
	ErrSourceMissing = zerr.New("source blob missing from cache")

	// ErrDestinationCollision is returned when two manifest entries resolve to conflicting output paths.
	ErrDestinationCollision = zerr.New("destination path collision")

	// ErrSizeMismatch is returned when a fetched blob's size does not match the manifest entry.
	ErrSizeMismatch = zerr.New("blob size does not match manifest entry")

	// ErrMappingFailed is returned when materializing the tree fails.
	ErrMappingFailed = zerr.New("failed to map file into scratch directory")

	// ErrCommandStartFailed is returned when the manifest's command cannot be spawned.
	ErrCommandStartFailed = zerr.New("failed to start command")

	// ErrNoCommandToRun is returned when a manifest declares an empty command.
	ErrNoCommandToRun = zerr.New("no command to run")

	// ErrCacheCreateFailed is returned when the cache directory cannot be created.
	ErrCacheCreateFailed = zerr.New("failed to create cache directory")

	// ErrCacheStateWriteFailed is returned when the cache state file cannot be persisted.
	ErrCacheStateWriteFailed = zerr.New("failed to write cache state")

	// ErrScratchCreateFailed is returned when the scratch directory cannot be created.
	ErrScratchCreateFailed = zerr.New("failed to create scratch directory")

	// ErrReadOnlySweepFailed is returned when stripping write permissions from the tree fails.
	ErrReadOnlySweepFailed = zerr.New("failed to mark tree read-only")

	// ErrRemoteRequired is returned when no remote location is configured.
	ErrRemoteRequired = zerr.New("remote location is required")

	// ErrNoManifestSpecified is returned when neither a manifest path nor a hash is given.
	ErrNoManifestSpecified = zerr.New("either a manifest or a hash must be specified")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrCleanFailed is returned when emptying the cache directory fails.
	ErrCleanFailed = zerr.New("failed to clean cache")
)
