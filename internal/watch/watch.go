// Package watch turns fsnotify events into debounced change signals for the
// open file and for the directory tree.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LFroesch/teditor/internal/logger"
)

// Event reports that the watched file changed. Removed is true when the
// file no longer exists once the burst of events has settled.
type Event struct {
	Path    string
	Removed bool
}

// FileWatcher watches a single file at a time. It subscribes to the file's
// parent directory so that replace-by-rename saves are seen too.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan Event

	mu     sync.Mutex
	target string
	dir    string
	timer  *time.Timer
	closed bool
}

// NewFileWatcher starts a watcher whose events are collapsed over debounce.
func NewFileWatcher(debounce time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	f := &FileWatcher{
		watcher:  watcher,
		debounce: debounce,
		events:   make(chan Event, 8),
	}
	go f.loop()
	return f, nil
}

// Events delivers debounced change events. It is closed by Close.
func (f *FileWatcher) Events() <-chan Event { return f.events }

// Watch replaces the watched file with path.
func (f *FileWatcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("watcher closed")
	}

	f.stopLocked()
	dir := filepath.Dir(abs)
	if dir != f.dir {
		if f.dir != "" {
			f.watcher.Remove(f.dir)
		}
		if err := f.watcher.Add(dir); err != nil {
			f.dir, f.target = "", ""
			return err
		}
		f.dir = dir
	}
	f.target = abs
	return nil
}

// Unwatch stops watching path if it is the watched file.
func (f *FileWatcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if abs != f.target {
		return nil
	}
	f.stopLocked()
	f.target = ""
	if f.dir != "" {
		dir := f.dir
		f.dir = ""
		if err := f.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			return err
		}
	}
	return nil
}

// Close stops the watcher and closes Events.
func (f *FileWatcher) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.stopLocked()
	f.mu.Unlock()
	return f.watcher.Close()
}

func (f *FileWatcher) stopLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *FileWatcher) loop() {
	defer func() {
		f.mu.Lock()
		f.closed = true
		f.stopLocked()
		f.mu.Unlock()
		close(f.events)
	}()
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			f.handle(event)
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher: %v", err)
		}
	}
}

func (f *FileWatcher) handle(event fsnotify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.target == "" || filepath.Clean(event.Name) != f.target {
		return
	}

	target := f.target
	f.stopLocked()
	f.timer = time.AfterFunc(f.debounce, func() {
		_, err := os.Stat(target)
		removed := errors.Is(err, fs.ErrNotExist)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed || f.target != target {
			return
		}
		select {
		case f.events <- Event{Path: target, Removed: removed}:
		default:
		}
	})
}

// TreeWatcher signals structural changes (entries created, removed or
// renamed) anywhere under a root.
type TreeWatcher struct {
	watcher  *fsnotify.Watcher
	root     string
	skip     func(rel string, isDir bool) bool
	debounce time.Duration
	events   chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewTreeWatcher watches root and every directory below it for which skip
// returns false. skip receives slash-separated relative paths and may be nil.
func NewTreeWatcher(root string, skip func(rel string, isDir bool) bool, debounce time.Duration) (*TreeWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if skip == nil {
		skip = func(string, bool) bool { return false }
	}
	t := &TreeWatcher{
		watcher:  watcher,
		root:     root,
		skip:     skip,
		debounce: debounce,
		events:   make(chan struct{}, 1),
	}
	if err := t.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}
	go t.loop()
	return t, nil
}

// Events delivers one tick per settled burst of changes.
func (t *TreeWatcher) Events() <-chan struct{} { return t.events }

// Close stops the watcher and closes Events.
func (t *TreeWatcher) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	return t.watcher.Close()
}

func (t *TreeWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // Skip unreadable subtrees
		}
		if !d.IsDir() {
			return nil
		}
		if rel := t.rel(path); rel != "" && t.skip(rel, true) {
			return filepath.SkipDir
		}
		if err := t.watcher.Add(path); err != nil {
			logger.Warn("Tree watcher: cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (t *TreeWatcher) rel(path string) string {
	rel, err := filepath.Rel(t.root, path)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (t *TreeWatcher) loop() {
	defer func() {
		t.mu.Lock()
		t.closed = true
		if t.timer != nil {
			t.timer.Stop()
		}
		t.mu.Unlock()
		close(t.events)
	}()
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if rel := t.rel(event.Name); rel != "" && !t.skip(rel, true) {
						_ = t.addTree(event.Name)
					}
				}
			}
			t.schedule()
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Tree watcher: %v", err)
		}
	}
}

func (t *TreeWatcher) schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			return
		}
		select {
		case t.events <- struct{}{}:
		default:
		}
	})
}
