package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
)

// Runner is the pipeline step triggered by the watcher
type Runner interface {
	Run() (*Result, error)
}

// Watcher re-runs the pipeline whenever a new rotated log shows up in the log directory
type Watcher struct {
	dir      string
	match    func(name string) bool
	runner   Runner
	debounce time.Duration
	logger   *pterm.Logger
}

// NewWatcher creates a watcher for dir. match filters base file names and
// debounce delays a run until the directory has been quiet for that long.
func NewWatcher(dir string, match func(name string) bool, runner Runner, debounce time.Duration, logger *pterm.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		dir:      dir,
		match:    match,
		runner:   runner,
		debounce: debounce,
		logger:   logger,
	}
}

// Watch blocks until ctx is cancelled. Run failures are logged and do not
// stop the watcher.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.logger.Info("Watching log directory for rotated logs", w.logger.Args("dir", w.dir))

	var timer *time.Timer
	var fire <-chan time.Time // nil until a matching event arrives
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Log directory watcher stopped", w.logger.Args("dir", w.dir))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.match(filepath.Base(event.Name)) {
				continue
			}
			w.logger.Trace("Log directory changed", w.logger.Args("event", event.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			result, err := w.runner.Run()
			if err != nil {
				w.logger.WithCaller().Error("Report run failed", w.logger.Args("error", err))
				continue
			}
			w.logger.Info("Report run finished", w.logger.Args("status", result.Status.String()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithCaller().Error("Watcher error", w.logger.Args("error", err))
		}
	}
}
