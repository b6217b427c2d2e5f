package cli

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/toyz/requnsafe/internal/errors"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 150 * time.Millisecond

// Watcher re-expands sources when they change on disk.
type Watcher struct {
	processor *Processor
	debounce  time.Duration
	// onExpand is called after each batch; used by tests
	onExpand func([]*FileResult, error)
}

// NewWatcher creates a watcher driving processor.
func NewWatcher(processor *Processor) *Watcher {
	return &Watcher{processor: processor, debounce: DefaultDebounce}
}

// Watch expands every configured file once, then keeps expanding files as
// they are written until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	files, err := w.processor.scanner.ScanPaths(w.processor.config.Paths)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.FileSystemErrorCode, "failed to start file watcher", err)
	}
	defer fsw.Close()

	for _, dir := range watchDirs(files) {
		if err := fsw.Add(dir); err != nil {
			return errors.WrapFileSystemError("watch", dir, err)
		}
	}

	results, err := w.processor.ProcessFiles(ctx, files)
	w.notify(results, err)
	w.processor.diagnostics.Info("Watching %d file(s) for changes", len(files))

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			path, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			pending[path] = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.processor.diagnostics.Warn("File watcher error: %v", err)

		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for path := range pending {
				w.processor.reader.InvalidateFile(path)
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = make(map[string]bool)

			w.processor.diagnostics.Verbose("Re-expanding %d changed file(s)", len(batch))
			results, err := w.processor.ProcessFiles(ctx, batch)
			w.notify(results, err)
		}
	}
}

func (w *Watcher) notify(results []*FileResult, err error) {
	if w.onExpand != nil {
		w.onExpand(results, err)
	}
}

// relevant reports whether ev is a write to a source file. Writes of our
// own outputs are ignored so expansion does not feed itself.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(ev.Name)
	if !strings.HasSuffix(name, ".rs") || strings.HasPrefix(name, ".") {
		return false
	}
	suffix := w.processor.config.Expand.OutputSuffix
	return suffix == "" || !strings.HasSuffix(name, suffix)
}

// watchDirs returns the distinct parent directories of files.
func watchDirs(files []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, file := range files {
		dir := filepath.Dir(file)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}
