package shell_test

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/isorun/internal/adapters/shell"
	"go.trai.ch/isorun/internal/core/domain"
)

func newScratch(t *testing.T) string {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.MkdirAll(scratch, 0o750))
	return scratch
}

func newRunner() (*shell.Runner, *bytes.Buffer, *bytes.Buffer) {
	r := shell.NewRunner(logger.New())
	var stdout, stderr bytes.Buffer
	r.SetOutput(&stdout, &stderr)
	return r, &stdout, &stderr
}

func requireUnixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests depend on sh")
	}
}

func TestRun_ExitCodePassthrough(t *testing.T) {
	requireUnixShell(t)
	r, _, _ := newRunner()
	scratch := newScratch(t)

	manifest := &domain.Manifest{Command: []string{"sh", "-c", "exit 3"}}

	code, err := r.Run(t.Context(), manifest, scratch)
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr), "scratch directory must be removed")
}

func TestRun_ForwardsOutput(t *testing.T) {
	requireUnixShell(t)
	r, stdout, stderr := newRunner()
	scratch := newScratch(t)

	manifest := &domain.Manifest{Command: []string{"sh", "-c", "echo hello; echo oops >&2"}}

	code, err := r.Run(t.Context(), manifest, scratch)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
}

func TestRun_RelativeCwd(t *testing.T) {
	requireUnixShell(t)
	r, stdout, _ := newRunner()
	scratch := newScratch(t)
	require.NoError(t, os.MkdirAll(filepath.Join(scratch, "work", "sub"), 0o750))

	manifest := &domain.Manifest{
		Command:     []string{"sh", "-c", "pwd"},
		RelativeCwd: "work/sub",
	}

	code, err := r.Run(t.Context(), manifest, scratch)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stdout.String()), filepath.Join("work", "sub")))
}

func TestRun_SpawnFailure(t *testing.T) {
	r, _, _ := newRunner()
	scratch := newScratch(t)

	manifest := &domain.Manifest{Command: []string{"./does-not-exist"}}

	_, err := r.Run(t.Context(), manifest, scratch)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrCommandStartFailed.Error())

	// Cleanup still happens when the command never started.
	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_EmptyCommand(t *testing.T) {
	r, _, _ := newRunner()
	scratch := newScratch(t)

	manifest := &domain.Manifest{Command: nil}

	_, err := r.Run(t.Context(), manifest, scratch)
	assert.ErrorIs(t, err, domain.ErrNoCommandToRun)
}
