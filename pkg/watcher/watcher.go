// Package watcher re-triggers analysis when the input graph file changes on
// disk. Events are debounced since editors typically emit bursts of writes
// and renames for a single save.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/dag-analyzer/pkg/logging"
)

// ChangeEvent represents a batch of changes to the watched graph file
type ChangeEvent struct {
	Path      string
	Timestamp time.Time
}

// FileWatcher watches a graph file for changes
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for the given graph file
func NewFileWatcher(path string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    filepath.Clean(path),
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	// Watch the containing directory; editors replace files by rename, which
	// drops a watch placed on the file itself.
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("watching graph file", "path", fw.path)
	go fw.processEvents(ctx)
	return nil
}

// Events returns the channel of raw change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("graph file changed", "op", event.Op.String())
			select {
			case fw.events <- ChangeEvent{Path: fw.path, Timestamp: time.Now()}:
			default:
				// Queue full; the pending events already cover this change.
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("watcher error", "error", err)
		}
	}
}
