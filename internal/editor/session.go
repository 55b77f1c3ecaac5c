// Package editor holds the single open file: its buffer, save and reload,
// and what is known about the copy on disk.
package editor

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/LFroesch/teditor/internal/fileops"
	"github.com/LFroesch/teditor/internal/logger"
)

// Watcher registers interest in change notifications for a path.
type Watcher interface {
	Watch(path string) error
	Unwatch(path string) error
}

// Options control how the session writes files.
type Options struct {
	AtomicSave bool
}

// DiskStatus describes the on-disk copy relative to the buffer's snapshot.
type DiskStatus int

const (
	DiskInSync DiskStatus = iota
	DiskChanged
	DiskRemoved
)

var errNotOpen = errors.New("no file open")

// Session owns at most one open Buffer.
//
// Saving while the file has changed on disk overwrites the external change:
// there is no merge, the last writer wins. The external-change flag only
// informs the user; it never alters the buffer by itself.
type Session struct {
	watcher  Watcher
	opts     Options
	buf      *Buffer
	external bool
	removed  bool
	watchErr error
}

// NewSession returns a session with no file open. w may be nil.
func NewSession(w Watcher, opts Options) *Session {
	return &Session{watcher: w, opts: opts}
}

// Open loads path into a fresh buffer. On error nothing changes. A failed
// watch registration does not fail the open; it is kept in WatchErr.
func (s *Session) Open(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	content, err := fileops.ReadText(path)
	if err != nil {
		logger.Warn("Open %s: %v", path, err)
		return err
	}

	if s.IsOpen() {
		s.Close()
	}

	s.buf = NewBuffer(path, content)
	s.external = false
	s.removed = false
	s.watchErr = nil
	if s.watcher != nil {
		if err := s.watcher.Watch(path); err != nil {
			logger.Warn("Watch %s: %v", path, err)
			s.watchErr = err
		}
	}
	return nil
}

// WatchErr returns the watch registration error of the last Open, if any.
func (s *Session) WatchErr() error { return s.watchErr }

// IsOpen reports whether a file is open.
func (s *Session) IsOpen() bool { return s.buf != nil }

// Buffer returns the open buffer, or nil.
func (s *Session) Buffer() *Buffer { return s.buf }

// Path returns the open file's absolute path, or "".
func (s *Session) Path() string {
	if s.buf == nil {
		return ""
	}
	return s.buf.Path()
}

// Dirty reports whether the buffer has unsaved edits.
func (s *Session) Dirty() bool { return s.buf != nil && s.buf.Dirty() }

// ExternallyChanged reports whether the file changed on disk since it was
// last loaded or saved.
func (s *Session) ExternallyChanged() bool { return s.external }

// DiskStatus reports what the last external change did to the file.
func (s *Session) DiskStatus() DiskStatus {
	switch {
	case !s.external:
		return DiskInSync
	case s.removed:
		return DiskRemoved
	default:
		return DiskChanged
	}
}

// Apply forwards op to the buffer.
func (s *Session) Apply(op Op) {
	if s.buf != nil {
		s.buf.Apply(op)
	}
}

// Save writes the buffer to disk, overwriting any external change. On
// failure the buffer stays dirty and unchanged.
func (s *Session) Save() error {
	if s.buf == nil {
		return &fileops.Error{Kind: fileops.ErrSaveFailed, Op: "save", Err: errNotOpen}
	}
	if err := fileops.WriteText(s.buf.Path(), s.buf.Content(), s.opts.AtomicSave); err != nil {
		logger.Error("Save %s: %v", s.buf.Path(), err)
		return err
	}
	s.buf.MarkSaved()
	s.external = false
	s.removed = false
	return nil
}

// Reload replaces the buffer with the on-disk content, dropping edits.
// The cursor is kept where it still fits. On failure nothing changes.
func (s *Session) Reload() error {
	if s.buf == nil {
		return &fileops.Error{Kind: fileops.ErrOpenFailed, Op: "reload", Err: errNotOpen}
	}
	content, err := fileops.ReadText(s.buf.Path())
	if err != nil {
		logger.Warn("Reload %s: %v", s.buf.Path(), err)
		return err
	}
	s.buf.Reset(content)
	s.external = false
	s.removed = false
	return nil
}

// Close unregisters the watch and drops the buffer without saving.
func (s *Session) Close() {
	if s.buf == nil {
		return
	}
	if s.watcher != nil {
		if err := s.watcher.Unwatch(s.buf.Path()); err != nil {
			logger.Warn("Unwatch %s: %v", s.buf.Path(), err)
		}
	}
	s.buf = nil
	s.external = false
	s.removed = false
	s.watchErr = nil
}

// OnExternalChange handles a change notification for path. It returns true
// when the flag was raised: the file is gone or its content no longer matches
// the snapshot. Notifications for other paths, and the echo of our own save,
// are ignored.
func (s *Session) OnExternalChange(path string) bool {
	if s.buf == nil || path != s.buf.Path() {
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.external = true
			s.removed = true
			return true
		}
		logger.Warn("Check external change of %s: %v", path, err)
		return false
	}

	s.removed = false
	if xxhash.Sum64(data) == s.buf.Snapshot() {
		return false
	}
	s.external = true
	return true
}
