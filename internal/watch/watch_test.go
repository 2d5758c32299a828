package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "pipmaster.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a\n"), 0o644))

	fired := make(chan struct{}, 1)
	w, err := New(Config{
		Path:     file,
		Debounce: 50 * time.Millisecond,
		Log:      zerolog.Nop(),
		OnChange: func(context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(file, []byte("name: b\n"), 0o644))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	cancel()
	require.NoError(t, <-errCh)
}

func TestWatcherCoalescesBursts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(file, []byte("requests\n"), 0o644))

	var calls atomic.Int32
	fired := make(chan struct{}, 1)
	w, err := New(Config{
		Path:     file,
		Debounce: 100 * time.Millisecond,
		Log:      zerolog.Nop(),
		OnChange: func(context.Context) error {
			calls.Add(1)
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Rapid writes well inside the debounce window.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("requests\nflask\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	// Settle briefly to catch spurious extra callbacks.
	time.Sleep(200 * time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "pipmaster.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a\n"), 0o644))

	var calls atomic.Int32
	w, err := New(Config{
		Path:     file,
		Debounce: 50 * time.Millisecond,
		Log:      zerolog.Nop(),
		OnChange: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "pipmaster.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a\n"), 0o644))

	fired := make(chan struct{}, 1)
	w, err := New(Config{
		Path:     file,
		Debounce: 50 * time.Millisecond,
		Log:      zerolog.Nop(),
		OnChange: func(context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Editor-style save: write a temp file, then rename it over the target.
	tmp := filepath.Join(dir, ".pipmaster.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("name: b\n"), 0o644))
	require.NoError(t, os.Rename(tmp, file))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	cancel()
	require.NoError(t, <-errCh)
}

func TestWatcherRunTwice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "pipmaster.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a\n"), 0o644))

	w, err := New(Config{Path: file, Log: zerolog.Nop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give the first Run a moment to claim the watcher.
	time.Sleep(50 * time.Millisecond)
	require.Error(t, w.Run(ctx))

	cancel()
	require.NoError(t, <-errCh)
}

func TestWatcherMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := New(Config{
		Path: filepath.Join(t.TempDir(), "no-such-dir", "pipmaster.yaml"),
		Log:  zerolog.Nop(),
	})
	require.Error(t, err)
}
