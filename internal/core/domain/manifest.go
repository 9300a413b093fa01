// Package domain contains the core types for isolated test execution.
package domain

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// Manifest describes one isolated execution: the command to run and the
// files that must be present in the scratch directory before it starts.
type Manifest struct {
	// Command is the command line to execute, written with forward slashes
	// regardless of platform.
	Command []string

	// Files maps slash-normalized relative paths to their entries.
	Files map[string]FileEntry

	// RelativeCwd is the working directory for Command, relative to the
	// scratch directory root. Empty means the root itself.
	RelativeCwd string

	// ReadOnly marks the whole materialized tree non-writable before the
	// command runs.
	ReadOnly bool
}

// FileEntry is one declared file in a manifest: either a regular file
// addressed by the sha-1 digest of its content, or a symbolic link.
// Exactly one of Digest and Link is set.
type FileEntry struct {
	// Digest is the content hash of a regular file. It doubles as the
	// blob's name in the cache and on the remote.
	Digest string

	// Mode holds optional permission bits for a regular file.
	Mode *int

	// Size holds the expected byte size of a regular file when the
	// manifest declares one.
	Size *int64

	// Link is the symlink target. Symlinks are created verbatim and are
	// not content-addressed.
	Link string
}

// IsLink reports whether the entry describes a symbolic link.
func (e FileEntry) IsLink() bool {
	return e.Link != ""
}

var digestRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

type fileEntryJSON struct {
	Digest *string `json:"sha-1,omitempty"`
	Mode   *int    `json:"mode,omitempty"`
	Size   *int64  `json:"size,omitempty"`
	Link   *string `json:"link,omitempty"`
}

type manifestJSON struct {
	Command     []string                 `json:"command"`
	Files       map[string]fileEntryJSON `json:"files"`
	RelativeCwd string                   `json:"relative_cwd,omitempty"`
	ReadOnly    bool                     `json:"read_only,omitempty"`
}

// MarshalJSON encodes the entry in the wire format ("sha-1", "mode", "size"
// or "link" keys).
func (e FileEntry) MarshalJSON() ([]byte, error) {
	dto := fileEntryJSON{Mode: e.Mode, Size: e.Size}
	if e.IsLink() {
		dto.Link = &e.Link
	} else {
		dto.Digest = &e.Digest
	}
	return json.Marshal(dto)
}

// UnmarshalJSON decodes the entry and enforces the exactly-one-of
// sha-1/link invariant.
func (e *FileEntry) UnmarshalJSON(data []byte) error {
	var dto fileEntryJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}

	if (dto.Digest == nil) == (dto.Link == nil) {
		return ErrManifestEntryInvalid
	}

	*e = FileEntry{Mode: dto.Mode, Size: dto.Size}
	if dto.Link != nil {
		e.Link = *dto.Link
		return nil
	}

	if !digestRe.MatchString(*dto.Digest) {
		return zerr.With(ErrManifestEntryInvalid, "sha-1", *dto.Digest)
	}
	e.Digest = *dto.Digest
	return nil
}

// MarshalJSON encodes the manifest in the documented wire format.
func (m Manifest) MarshalJSON() ([]byte, error) {
	files := make(map[string]fileEntryJSON, len(m.Files))
	for path, entry := range m.Files {
		dto := fileEntryJSON{Mode: entry.Mode, Size: entry.Size}
		if entry.IsLink() {
			link := entry.Link
			dto.Link = &link
		} else {
			digest := entry.Digest
			dto.Digest = &digest
		}
		files[path] = dto
	}
	return json.Marshal(manifestJSON{
		Command:     m.Command,
		Files:       files,
		RelativeCwd: m.RelativeCwd,
		ReadOnly:    m.ReadOnly,
	})
}

// UnmarshalJSON decodes the manifest without validating it. Use
// ParseManifest for untrusted input.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var dto struct {
		Command     []string             `json:"command"`
		Files       map[string]FileEntry `json:"files"`
		RelativeCwd string               `json:"relative_cwd"`
		ReadOnly    bool                 `json:"read_only"`
	}
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	*m = Manifest{
		Command:     dto.Command,
		Files:       dto.Files,
		RelativeCwd: dto.RelativeCwd,
		ReadOnly:    dto.ReadOnly,
	}
	return nil
}

// ParseManifest decodes and validates a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.Wrap(err, ErrManifestParseFailed.Error())
	}

	if len(m.Command) == 0 {
		return nil, zerr.With(ErrManifestIncomplete, "missing", "command")
	}
	if m.Files == nil {
		return nil, zerr.With(ErrManifestIncomplete, "missing", "files")
	}

	for path := range m.Files {
		if !isSafeRelPath(path) {
			return nil, zerr.With(ErrManifestPathInvalid, "path", path)
		}
	}
	if m.RelativeCwd != "" && !isSafeRelPath(m.RelativeCwd) {
		return nil, zerr.With(ErrManifestPathInvalid, "path", m.RelativeCwd)
	}

	return &m, nil
}

// isSafeRelPath reports whether a slash-normalized path is relative and
// cannot escape the tree root.
func isSafeRelPath(path string) bool {
	if path == "" || strings.HasPrefix(path, "/") {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == ".." {
			return false
		}
	}
	return true
}
