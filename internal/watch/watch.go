// Package watch re-runs an action whenever a file changes on disk. Events
// are debounced so editor write bursts collapse into one run, and runs
// never overlap: changes arriving mid-run fire again once it finishes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// Config holds the parameters for a Watcher.
type Config struct {
	// Path is the file to watch. Its parent directory is monitored so
	// atomic saves (write to temp file, rename over) are still seen.
	Path string

	// Debounce is the quiet period after the last event before OnChange
	// fires. Zero or negative values fall back to the default.
	Debounce time.Duration

	// OnChange runs after the debounce window closes. Errors are logged
	// and do not stop the watcher.
	OnChange func(ctx context.Context) error

	Log zerolog.Logger
}

// Watcher monitors one file and fires a debounced callback on changes.
// Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	log      zerolog.Logger
	started  atomic.Bool
}

// New resolves the watched path and registers its directory with fsnotify.
func New(cfg Config) (*Watcher, error) {
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(abs)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add directory %q: %w", dir, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		path:     abs,
		debounce: debounce,
		log:      cfg.Log,
	}, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks for
// changes to the watched file. It returns nil on clean cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		dirty   bool
		timer   *time.Timer
		running atomic.Bool
	)

	// fire runs the callback once the quiet period has passed. The
	// skip-if-busy guard keeps callback runs from overlapping when the
	// action takes longer than the debounce window; the reschedule makes
	// sure pending changes are not silently dropped in that case.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.log.Debug().Msg("change arrived during active run, rescheduling")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if !dirty {
			mu.Unlock()
			return
		}
		dirty = false
		mu.Unlock()

		w.log.Info().Str("file", w.path).Msg("file changed, re-running")
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx); err != nil {
				w.log.Error().Err(err).Msg("watch callback failed")
			}
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if err := w.fsw.Close(); err != nil {
			w.log.Error().Err(err).Msg("closing watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: event channel closed unexpectedly")
			}
			if !w.matches(evt) {
				continue
			}

			mu.Lock()
			dirty = true
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: error channel closed unexpectedly")
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

// matches reports whether an event concerns the watched file. Write covers
// in-place saves; create and rename cover atomic replaces.
func (w *Watcher) matches(evt fsnotify.Event) bool {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(evt.Name)
	if err != nil {
		name = evt.Name
	}
	return name == w.path
}
