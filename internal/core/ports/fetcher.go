package ports

import "context"

// Fetcher resolves a remote reference, either a filesystem path or an
// http(s) URL, into local bytes.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// FetchTo copies or downloads ref into dest. On failure dest is left
	// absent; the caller decides severity.
	FetchTo(ctx context.Context, ref, dest string) error

	// ReadBytes returns ref's content in memory. Used for small documents
	// such as manifests, never for blobs.
	ReadBytes(ctx context.Context, ref string) ([]byte, error)
}
