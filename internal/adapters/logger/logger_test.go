package logger_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	l, ok := logger.New().(*logger.Logger)
	require.True(t, ok)

	buf := &bytes.Buffer{}
	l.SetOutput(buf)
	return l, buf
}

func TestLogger_Verbosity(t *testing.T) {
	l, buf := newTestLogger(t)

	// Default level is warn.
	l.Debug("debug message")
	l.Info("info message")
	assert.Empty(t, buf.String())

	l.Warn("warn message")
	assert.Equal(t, "! warn message\n", buf.String())
	buf.Reset()

	l.SetVerbosity(1)
	l.Info("info message")
	l.Debug("debug message")
	assert.Equal(t, "info message\n", buf.String())
	buf.Reset()

	l.SetVerbosity(2)
	l.Debug("debug message")
	assert.Equal(t, "debug message\n", buf.String())
}

func TestLogger_ErrorChain(t *testing.T) {
	l, buf := newTestLogger(t)

	err := zerr.Wrap(
		zerr.Wrap(
			errors.New("root cause"),
			"middle layer",
		),
		"outer layer",
	)
	l.Error(err)

	g := goldie.New(t)
	g.Assert(t, "logger_error_chain", buf.Bytes())
}

func TestLogger_ErrorSingle(t *testing.T) {
	l, buf := newTestLogger(t)

	l.Error(errors.New("plain failure"))

	g := goldie.New(t)
	g.Assert(t, "logger_error_single", buf.Bytes())
}

func TestLogger_ErrorNilIsNoop(t *testing.T) {
	l, buf := newTestLogger(t)

	l.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSONMode(t *testing.T) {
	l, buf := newTestLogger(t)
	l.SetJSON(true)

	l.Error(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"error":"boom"`)
}
