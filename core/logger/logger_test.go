package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriterForAll(&buf)
	t.Cleanup(func() {
		SetWriterForAll(os.Stdout)
		SetVerbose(false)
	})
	return &buf
}

func TestDebugHiddenUnlessVerbose(t *testing.T) {
	buf := capture(t)

	SetVerbose(false)
	Debug("hidden %d", 1)
	Info("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "INFO")
	assert.False(t, IsVerbose())

	SetVerbose(true)
	Debug("visible %s", "now")
	assert.Contains(t, buf.String(), "visible now")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.True(t, IsVerbose())
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)
	SetLevel(ERROR)
	Warn("quiet")
	Error("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestGetLogFromLevel(t *testing.T) {
	buf := capture(t)
	GetLogFromLevel(WARN)("careful %s", "now")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "careful now")
}

func TestSetLogFileTees(t *testing.T) {
	buf := capture(t)
	p := filepath.Join(t.TempDir(), "diagify.log")

	closeFn, err := SetLogFile(p)
	require.NoError(t, err)
	Info("to both")
	Sync()
	require.NoError(t, closeFn())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
	// Files get no ANSI color codes.
	assert.NotContains(t, string(data), "\x1b[")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "FATAL", FATAL.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
