package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsSettledFile(t *testing.T) {
	dir := t.TempDir()

	w := New(dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, events)
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, path, ev.Path)
		assert.False(t, ev.Removed)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	<-done
}

func TestWatcherFiltersPaths(t *testing.T) {
	dir := t.TempDir()

	w := New(dir, 50*time.Millisecond, func(path string) bool {
		return strings.HasSuffix(path, ".md")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, events)
	}()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.md"), []byte("# hi"), 0o644))

	select {
	case ev := <-events:
		assert.True(t, strings.HasSuffix(ev.Path, "keep.md"), "unexpected event for %s", ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	<-done
}

func TestWatcherReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := New(dir, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, events)
	}()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.Remove(path))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Removed {
				assert.Equal(t, path, ev.Path)
				cancel()
				<-done
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for removal event")
		}
	}
}
