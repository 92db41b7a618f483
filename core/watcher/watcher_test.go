package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

func TestWatchRerunsOnChange(t *testing.T) {
	p := filepath.Join(t.TempDir(), "arch.txt")
	require.NoError(t, os.WriteFile(p, []byte("three web servers\n"), 0o644))

	changes := make(chan string, 8)
	dw, err := NewDescriptionWatcher(p, 20*time.Millisecond, func(ctx context.Context, description string) error {
		changes <- description
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dw.Watch(ctx) }()

	assert.Equal(t, "three web servers", receive(t, changes))

	require.NoError(t, os.WriteFile(p, []byte("four web servers"), 0o644))
	assert.Equal(t, "four web servers", receive(t, changes))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "arch.txt")
	require.NoError(t, os.WriteFile(p, []byte("same"), 0o644))

	changes := make(chan string, 8)
	dw, err := NewDescriptionWatcher(p, 20*time.Millisecond, func(ctx context.Context, description string) error {
		changes <- description
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dw.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	assert.Equal(t, "same", receive(t, changes))

	// Rewrite with identical content and touch an unrelated file.
	require.NoError(t, os.WriteFile(p, []byte("same\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	select {
	case got := <-changes:
		t.Fatalf("unexpected rerun with %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewRejectsMissingFile(t *testing.T) {
	_, err := NewDescriptionWatcher(filepath.Join(t.TempDir(), "missing.txt"), 0, nil)
	require.Error(t, err)
}
