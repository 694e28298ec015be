// Package watch reports changes to a single file, debounced.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

type Options struct {
	// Debounce is how long the file must stay quiet before a change is
	// reported.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher calls onChange after the watched file was written, created,
// renamed over or removed. The parent directory is watched instead of the
// file so editors that replace the file by rename are seen.
type Watcher struct {
	path     string
	dir      string
	onChange func(ctx context.Context, op fsnotify.Op)
	debounce time.Duration
	logger   *slog.Logger

	fsw     *fsnotify.Watcher
	pending fsnotify.Op
	timer   *time.Timer
}

func New(path string, onChange func(ctx context.Context, op fsnotify.Op), opts Options) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watch path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		path:     path,
		dir:      dir,
		onChange: onChange,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run delivers changes until ctx is done, then releases the watch. A change
// still being debounced when ctx ends is dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.stopTimer()

	w.logger.Info("watching file", "path", w.path)

	for {
		var timerC <-chan time.Time
		if w.timer != nil {
			timerC = w.timer.C
		}

		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "path", w.path, "error", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op == fsnotify.Chmod {
				continue
			}
			w.record(ev.Op)
		case <-timerC:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) record(op fsnotify.Op) {
	w.pending |= op
	if w.timer == nil {
		w.timer = time.NewTimer(w.debounce)
		return
	}
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) flush(ctx context.Context) {
	op := w.pending
	w.pending = 0
	w.timer = nil
	if op == 0 {
		return
	}
	w.logger.Debug("file changed", "path", w.path, "op", op.String())
	w.onChange(ctx, op)
}

func (w *Watcher) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
