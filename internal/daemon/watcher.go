package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/jsxforge/internal/config"
	"git.home.luguber.info/inful/jsxforge/internal/logfields"
)

// Editors save in bursts; changes within this window collapse into one run.
const debounceWindow = 2 * time.Second

// sourceWatcher watches the project source tree and fires the trigger
// callback after a quiet period. The staging tree and excluded directories
// are never watched, which keeps the pipeline's own writes from retriggering
// conversions.
type sourceWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	skip    map[string]bool
	fire    func()
}

func newSourceWatcher(cfg *config.Config, fire func()) (*sourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	skip := make(map[string]bool, len(cfg.Exclude.Dirs)+1)
	for _, d := range cfg.Exclude.Dirs {
		skip[d] = true
	}
	skip[cfg.Project.StagingDir] = true

	sw := &sourceWatcher{watcher: watcher, root: root, skip: skip, fire: fire}
	if err := sw.addRecursive(root); err != nil {
		watcher.Close()
		return nil, err
	}
	slog.Info("Watching source tree", logfields.Path(root))
	return sw, nil
}

// addRecursive registers watches for dir and every non-excluded subdirectory.
func (sw *sourceWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != sw.root && sw.skip[d.Name()] {
			return fs.SkipDir
		}
		if err := sw.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// run consumes filesystem events until the context is canceled, debouncing
// bursts into single trigger calls. New directories are added to the watch
// set as they appear.
func (sw *sourceWatcher) run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// Best effort: the path may already be gone again.
				if err := sw.addRecursive(event.Name); err != nil {
					slog.Debug("Could not watch new path", logfields.Path(event.Name), logfields.Error(err))
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", logfields.Error(err))
		case <-timerC:
			timer = nil
			timerC = nil
			slog.Info("Source tree changed, triggering conversion")
			sw.fire()
		}
	}
}

// relevant filters out events under excluded directories.
func (sw *sourceWatcher) relevant(event fsnotify.Event) bool {
	rel, err := filepath.Rel(sw.root, event.Name)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if sw.skip[part] {
			return false
		}
	}
	return true
}

func (sw *sourceWatcher) close() {
	if err := sw.watcher.Close(); err != nil {
		slog.Error("Failed to close watcher", logfields.Error(err))
	}
}
