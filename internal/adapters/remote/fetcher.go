// Package remote resolves blob and manifest references against either a
// filesystem path or an http(s) endpoint.
package remote

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
)

var urlRe = regexp.MustCompile(`^https?://`)

// IsURL reports whether ref is an http(s) reference rather than a
// filesystem path.
func IsURL(ref string) bool {
	return urlRe.MatchString(ref)
}

// Join appends a name to a base reference, using URL or filesystem path
// semantics as appropriate.
func Join(base, name string) string {
	if IsURL(base) {
		return strings.TrimSuffix(base, "/") + path.Join("/", name)
	}
	return filepath.Join(base, name)
}

// Fetcher implements ports.Fetcher with a shared HTTP client for URL
// references and plain file copies for everything else.
type Fetcher struct {
	client *http.Client
	logger ports.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(logger ports.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{},
		logger: logger,
	}
}

// FetchTo copies or downloads ref into dest. The content is staged in a
// temp file next to dest and renamed into place, so dest either appears
// complete or not at all.
func (f *Fetcher) FetchTo(ctx context.Context, ref, dest string) error {
	var open func() (io.ReadCloser, error)
	if IsURL(ref) {
		open = func() (io.ReadCloser, error) { return f.openURL(ctx, ref) }
	} else {
		open = func() (io.ReadCloser, error) { return f.openFile(ref) }
	}

	src, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "fetch_*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrFetchFailed.Error())
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}
	return nil
}

// ReadBytes returns ref's content in memory. Used for manifests, not blobs.
func (f *Fetcher) ReadBytes(ctx context.Context, ref string) ([]byte, error) {
	if IsURL(ref) {
		body, err := f.openURL(ctx, ref)
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()

		data, err := io.ReadAll(body)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
		}
		return data, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}
	return data, nil
}

func (f *Fetcher) openURL(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, zerr.With(zerr.With(domain.ErrFetchFailed, "ref", ref), "status", resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) openFile(ref string) (io.ReadCloser, error) {
	src, err := os.Open(ref)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFetchFailed.Error()), "ref", ref)
	}
	return src, nil
}
