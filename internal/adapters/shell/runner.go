// Package shell runs manifest commands inside a materialized scratch tree.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/isorun/internal/adapters/fs"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/isorun/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Runner implements ports.Runner using os/exec with piped output.
type Runner struct {
	logger ports.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewRunner creates a Runner that forwards the child's streams to the
// process's own stdout and stderr.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{
		logger: logger,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetOutput redirects where the child's streams are forwarded.
func (r *Runner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Run spawns the manifest command inside scratchDir and waits for it.
// The scratch directory is removed on every return path. The returned
// int is the child's exit code when err is nil.
func (r *Runner) Run(ctx context.Context, manifest *domain.Manifest, scratchDir string) (int, error) {
	defer fs.RemoveTreeWithRetry(scratchDir, r.logger)

	if len(manifest.Command) == 0 {
		return 0, domain.ErrNoCommandToRun
	}

	cwd := scratchDir
	if manifest.RelativeCwd != "" {
		cwd = filepath.Join(scratchDir, filepath.FromSlash(manifest.RelativeCwd))
	}

	command := normalizeCommand(manifest.Command)

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // manifest provided command
	cmd.Dir = cwd
	cmd.Stdin = os.Stdin

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return 0, zerr.Wrap(err, "failed to open stdout pipe")
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return 0, zerr.Wrap(err, "failed to open stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		wrapped := zerr.Wrap(err, domain.ErrCommandStartFailed.Error())
		wrapped = zerr.With(wrapped, "command", strings.Join(command, " "))
		return 0, zerr.With(wrapped, "cwd", cwd)
	}

	var group errgroup.Group
	group.Go(func() error {
		return forward(stdoutPipe, r.stdout, &logWriter{logger: r.logger, stderr: false})
	})
	group.Go(func() error {
		return forward(stderrPipe, r.stderr, &logWriter{logger: r.logger, stderr: true})
	})

	copyErr := group.Wait()

	err = cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, zerr.Wrap(err, "command did not complete")
	}
	if copyErr != nil {
		return 0, zerr.Wrap(copyErr, "failed to stream command output")
	}

	return 0, nil
}

// forward copies a child stream to both the real output and the logger's
// line buffer, flushing any unterminated tail line at EOF.
func forward(src io.Reader, dst io.Writer, log *logWriter) error {
	_, err := io.Copy(io.MultiWriter(dst, log), src)
	log.flush()
	if err != nil {
		return zerr.Wrap(err, "copy failed")
	}
	return nil
}

// normalizeCommand converts the first token's forward slashes to the host
// separator and routes python invocations through a PATH-resolved
// interpreter so manifests captured on one platform still run on another.
func normalizeCommand(command []string) []string {
	out := make([]string, len(command))
	copy(out, command)
	out[0] = filepath.FromSlash(out[0])

	base := strings.TrimSuffix(filepath.Base(out[0]), ".exe")
	switch {
	case base == "python" || base == "python3":
		if interp, err := exec.LookPath("python3"); err == nil {
			out[0] = interp
		} else if interp, err := exec.LookPath("python"); err == nil {
			out[0] = interp
		}
	case strings.HasSuffix(base, ".py"):
		if interp, err := exec.LookPath("python3"); err == nil {
			out = append([]string{interp}, out...)
		} else if interp, err := exec.LookPath("python"); err == nil {
			out = append([]string{interp}, out...)
		}
	}

	return out
}

// logWriter buffers a child stream and replays it line by line through
// the structured logger at debug level so -vv captures test output.
type logWriter struct {
	logger ports.Logger
	stderr bool
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) flush() {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if w.stderr {
		w.logger.Debug("stderr: " + msg)
		return
	}
	w.logger.Debug("stdout: " + msg)
}
