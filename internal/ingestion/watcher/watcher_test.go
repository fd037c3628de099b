package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, 100*time.Millisecond, func(context.Context) { calls.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "hewan.csv"), []byte("text\nkucing\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchMissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Second, func(context.Context) {})
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "a/b.CSV", Op: fsnotify.Write}))
	assert.True(t, relevant(fsnotify.Event{Name: "b.csv", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "b.csv", Op: fsnotify.Chmod}))
	assert.False(t, relevant(fsnotify.Event{Name: "b.txt", Op: fsnotify.Write}))
}
