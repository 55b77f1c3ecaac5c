package fileops

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Error kinds surfaced to the user. Every failure returned by this package
// (and by tree/editor on top of it) matches exactly one of these with errors.Is.
var (
	ErrOpenFailed   = errors.New("open failed")
	ErrSaveFailed   = errors.New("save failed")
	ErrCreateFailed = errors.New("create failed")
	ErrWalkPartial  = errors.New("partial listing")
)

// sniffLen is how much of a file is inspected for NUL bytes
const sniffLen = 8000

// Error carries an error kind together with the operation, path and cause.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// ReadText reads a file that must be UTF-8 text.
// Directories, binary content and invalid UTF-8 are rejected with ErrOpenFailed.
func ReadText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", newError(ErrOpenFailed, "open", path, err)
	}
	if info.IsDir() {
		return "", newError(ErrOpenFailed, "open", path, errors.New("is a directory"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", newError(ErrOpenFailed, "open", path, err)
	}

	sniff := data
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}
	if bytes.IndexByte(sniff, 0) != -1 {
		return "", newError(ErrOpenFailed, "open", path, errors.New("binary file"))
	}
	if !utf8.Valid(data) {
		return "", newError(ErrOpenFailed, "open", path, errors.New("not valid UTF-8"))
	}
	return string(data), nil
}

// WriteText writes content to path, keeping the permissions of an existing file.
// With atomic set the content goes to a temp file in the same directory which
// is then renamed over the target, so readers never observe a partial write.
// A symlinked path is resolved first so the link keeps pointing at the file
// that was written. Files with more than one hard link are written in place.
func WriteText(path, content string, atomic bool) error {
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return newError(ErrSaveFailed, "save", path, errors.New("is a directory"))
		}
		mode = info.Mode().Perm()
		if linkCount(info) > 1 {
			atomic = false
		}
	}

	if !atomic {
		if err := os.WriteFile(target, []byte(content), mode); err != nil {
			return newError(ErrSaveFailed, "save", path, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return newError(ErrSaveFailed, "save", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.WriteString(content); err != nil {
		cleanup()
		return newError(ErrSaveFailed, "save", path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return newError(ErrSaveFailed, "save", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return newError(ErrSaveFailed, "save", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return newError(ErrSaveFailed, "save", path, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return newError(ErrSaveFailed, "save", path, err)
	}
	return nil
}

// CreateFile creates a new empty file. An existing file is an error.
func CreateFile(dir, name string) error {
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return newError(ErrCreateFailed, "create", path, err)
	}
	if err := file.Close(); err != nil {
		return newError(ErrCreateFailed, "create", path, err)
	}
	return nil
}

// CreateDir creates a new directory. An existing directory is an error.
func CreateDir(dir, name string) error {
	path := filepath.Join(dir, name)
	if err := os.Mkdir(path, 0755); err != nil {
		return newError(ErrCreateFailed, "create", path, err)
	}
	return nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return newError(ErrCreateFailed, "create", dir, err)
	}
	return nil
}

// FormatError turns err into a short message for the status line.
func FormatError(err error, path, operation string) error {
	if err == nil {
		return nil
	}

	name := filepath.Base(path)
	var reason string
	switch {
	case errors.Is(err, fs.ErrNotExist):
		reason = "no such file or directory"
	case errors.Is(err, fs.ErrPermission):
		reason = "permission denied"
	case errors.Is(err, fs.ErrExist):
		reason = "already exists"
	default:
		var fe *Error
		if errors.As(err, &fe) && fe.Err != nil {
			reason = fe.Err.Error()
		} else {
			reason = err.Error()
		}
		if pe := (*fs.PathError)(nil); errors.As(err, &pe) {
			reason = pe.Err.Error()
		}
	}
	reason = strings.TrimSpace(reason)
	return fmt.Errorf("%s %s: %s", operation, name, reason)
}
