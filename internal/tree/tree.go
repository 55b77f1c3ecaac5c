// Package tree enumerates the directory tree under a root and tracks which
// directories are expanded.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LFroesch/teditor/internal/fileops"
	"github.com/LFroesch/teditor/internal/ignore"
	"github.com/LFroesch/teditor/internal/logger"
)

// Kind is the type of a filesystem node.
type Kind int

const (
	File Kind = iota
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "dir"
	}
	return "file"
}

// Entry is one file or directory under the root.
type Entry struct {
	Path     string // absolute
	RelPath  string // slash-separated, relative to the root
	Name     string
	Kind     Kind
	Depth    int // 0 for children of the root
	Size     int64
	Expanded bool
	Hidden   bool
	Ignored  bool
}

// IsDir reports whether e is a directory.
func (e Entry) IsDir() bool { return e.Kind == Dir }

// Version control directories are never listed
var skipDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
}

// Options control enumeration.
type Options struct {
	ShowHidden  bool
	MaxEntries  int
	ExtraIgnore []string
}

// Walker owns the cached listing of a root directory and its expanded set.
type Walker struct {
	root     string
	opts     Options
	ignore   *ignore.Matcher
	entries  []Entry
	expanded map[string]bool
}

// NewWalker returns a walker for root. Nothing is read until Refresh or Install.
func NewWalker(root string, opts Options) *Walker {
	return &Walker{
		root:     root,
		opts:     opts,
		ignore:   ignore.New(root, opts.ExtraIgnore),
		expanded: make(map[string]bool),
	}
}

// Root returns the absolute root directory.
func (w *Walker) Root() string { return w.root }

// ShowHidden reports whether hidden entries are listed.
func (w *Walker) ShowHidden() bool { return w.opts.ShowHidden }

// SetShowHidden changes the hidden filter. Call Refresh afterwards.
func (w *Walker) SetShowHidden(show bool) { w.opts.ShowHidden = show }

// IsIgnored exposes the ignore rules, e.g. for the tree watcher.
func (w *Walker) IsIgnored(rel string, isDir bool) bool {
	if isDir && skipDirs[path.Base(rel)] {
		return true
	}
	return w.ignore.IsIgnored(rel, isDir)
}

// List enumerates root with default options. It is the pure form of Scan.
func List(root string, showHidden bool) ([]Entry, error) {
	return NewWalker(root, Options{ShowHidden: showHidden}).Scan()
}

// Scan reads the tree from disk without touching the cached listing, so it
// may run off the main loop. Install the result with Install.
func (w *Walker) Scan() ([]Entry, error) {
	w.ignore.Reset()

	s := &scan{w: w, limit: w.opts.MaxEntries}
	s.walk("", 0, false)

	if len(s.paths) > 0 {
		return s.entries, &PartialError{Paths: s.paths, Errs: s.errs}
	}
	return s.entries, nil
}

// Install replaces the cached listing. Expanded directories that no longer
// exist are forgotten.
func (w *Walker) Install(entries []Entry) {
	dirs := make(map[string]bool)
	for _, e := range entries {
		if e.Kind == Dir {
			dirs[e.RelPath] = true
		}
	}
	for rel := range w.expanded {
		if !dirs[rel] {
			delete(w.expanded, rel)
		}
	}
	w.entries = entries
}

// Refresh re-enumerates from the root. A *PartialError still installs
// whatever was read.
func (w *Walker) Refresh() error {
	entries, err := w.Scan()
	w.Install(entries)
	if err != nil {
		logger.Warn("Tree refresh of %s: %v", w.root, err)
	}
	return err
}

// Entries returns every cached entry, regardless of expansion.
func (w *Walker) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	for i, e := range w.entries {
		e.Expanded = e.Kind == Dir && w.expanded[e.RelPath]
		out[i] = e
	}
	return out
}

// Visible returns the entries whose ancestors are all expanded, in order.
func (w *Walker) Visible() []Entry {
	open := map[string]bool{"": true}
	var out []Entry
	for _, e := range w.entries {
		if !open[parentOf(e.RelPath)] {
			continue
		}
		e.Expanded = e.Kind == Dir && w.expanded[e.RelPath]
		if e.Expanded {
			open[e.RelPath] = true
		}
		out = append(out, e)
	}
	return out
}

// Lookup returns the cached entry at rel.
func (w *Walker) Lookup(rel string) (Entry, bool) {
	for _, e := range w.entries {
		if e.RelPath == rel {
			e.Expanded = e.Kind == Dir && w.expanded[e.RelPath]
			return e, true
		}
	}
	return Entry{}, false
}

// Toggle flips the expanded flag of a directory and returns the new state.
func (w *Walker) Toggle(rel string) bool {
	w.SetExpanded(rel, !w.expanded[rel])
	return w.expanded[rel]
}

// SetExpanded sets the expanded flag of a directory.
func (w *Walker) SetExpanded(rel string, expanded bool) {
	if expanded {
		w.expanded[rel] = true
	} else {
		delete(w.expanded, rel)
	}
}

// IsExpanded reports whether rel is expanded.
func (w *Walker) IsExpanded(rel string) bool { return w.expanded[rel] }

// Reveal expands every ancestor of rel.
func (w *Walker) Reveal(rel string) {
	for dir := parentOf(rel); dir != ""; dir = parentOf(dir) {
		w.expanded[dir] = true
	}
}

// Create makes a file or directory at rel, creating missing parents, and
// refreshes the listing. On failure the listing is left as it was.
func (w *Walker) Create(rel string, kind Kind) (Entry, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return Entry{}, &fileops.Error{Kind: fileops.ErrCreateFailed, Op: "create", Path: rel, Err: err}
	}

	full := filepath.Join(w.root, filepath.FromSlash(clean))
	if _, err := os.Lstat(full); err == nil {
		return Entry{}, &fileops.Error{Kind: fileops.ErrCreateFailed, Op: "create", Path: full, Err: fs.ErrExist}
	}

	dir, name := filepath.Split(full)
	if err := fileops.EnsureDir(dir); err != nil {
		return Entry{}, err
	}
	if kind == Dir {
		err = fileops.CreateDir(dir, name)
	} else {
		err = fileops.CreateFile(dir, name)
	}
	if err != nil {
		logger.Error("Create %s %s: %v", kind, full, err)
		return Entry{}, err
	}

	if err := w.Refresh(); err != nil && !errors.Is(err, fileops.ErrWalkPartial) {
		return Entry{}, err
	}
	if e, ok := w.Lookup(clean); ok {
		return e, nil
	}
	// Created but filtered out (hidden or ignored while hidden files are off)
	return Entry{
		Path:    full,
		RelPath: clean,
		Name:    name,
		Kind:    kind,
		Depth:   strings.Count(clean, "/"),
		Hidden:  true,
	}, nil
}

// ResolveCreatePath parses the create prompt. base is the relative directory
// the prompt was opened in. A trailing slash asks for a directory. Input that
// already starts with base is not joined to it again.
func ResolveCreatePath(base, input string) (string, Kind, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", File, errors.New("empty name")
	}

	kind := File
	if strings.HasSuffix(input, "/") || strings.HasSuffix(input, string(filepath.Separator)) {
		kind = Dir
	}

	input = filepath.ToSlash(input)
	if path.IsAbs(input) || filepath.IsAbs(input) {
		return "", kind, errors.New("absolute paths are not allowed")
	}

	joined := input
	if base != "" && input != base && !strings.HasPrefix(input, base+"/") {
		joined = base + "/" + input
	}

	rel, err := cleanRel(joined)
	if err != nil {
		return "", kind, err
	}
	return rel, kind, nil
}

func cleanRel(rel string) (string, error) {
	rel = filepath.ToSlash(strings.TrimSpace(rel))
	if rel == "" {
		return "", errors.New("empty name")
	}
	if path.IsAbs(rel) || filepath.IsAbs(rel) {
		return "", errors.New("absolute paths are not allowed")
	}
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New("path escapes the root")
	}
	return clean, nil
}

func parentOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// PartialError reports sub-paths that could not be enumerated. The entries
// read successfully are returned alongside it.
type PartialError struct {
	Paths []string
	Errs  []error
}

func (e *PartialError) Error() string {
	if len(e.Paths) == 1 {
		return fmt.Sprintf("partial listing: %s: %v", e.Paths[0], e.Errs[0])
	}
	return fmt.Sprintf("partial listing: %d paths unreadable (first %s: %v)", len(e.Paths), e.Paths[0], e.Errs[0])
}

func (e *PartialError) Unwrap() []error {
	return append([]error{fileops.ErrWalkPartial}, e.Errs...)
}

var errLimit = errors.New("entry limit reached")

type scan struct {
	w       *Walker
	limit   int
	entries []Entry
	paths   []string
	errs    []error
	stopped bool
}

func (s *scan) fail(rel string, err error) {
	if rel == "" {
		rel = "."
	}
	s.paths = append(s.paths, rel)
	s.errs = append(s.errs, err)
}

func (s *scan) walk(dir string, depth int, parentHidden bool) {
	if s.stopped {
		return
	}

	full := filepath.Join(s.w.root, filepath.FromSlash(dir))
	items, err := os.ReadDir(full)
	if err != nil {
		s.fail(dir, err)
		// ReadDir may still return what it read before the error
		if len(items) == 0 {
			return
		}
	}
	s.w.ignore.Load(dir)
	sortDirEntries(items)

	for _, item := range items {
		name := item.Name()
		isDir := item.IsDir()
		if isDir && skipDirs[name] {
			continue
		}

		rel := name
		if dir != "" {
			rel = dir + "/" + name
		}

		ignored := s.w.ignore.IsIgnored(rel, isDir)
		hidden := parentHidden || strings.HasPrefix(name, ".") || ignored
		if hidden && !s.w.opts.ShowHidden {
			continue
		}

		if s.limit > 0 && len(s.entries) >= s.limit {
			s.fail(rel, fmt.Errorf("%w (%d)", errLimit, s.limit))
			s.stopped = true
			return
		}

		e := Entry{
			Path:    filepath.Join(full, name),
			RelPath: rel,
			Name:    name,
			Kind:    File,
			Depth:   depth,
			Hidden:  hidden,
			Ignored: ignored,
		}
		if isDir {
			e.Kind = Dir
		} else if info, err := item.Info(); err == nil {
			e.Size = info.Size()
		}
		s.entries = append(s.entries, e)

		if isDir {
			s.walk(rel, depth+1, hidden)
			if s.stopped {
				return
			}
		}
	}
}

// sortDirEntries orders directories before files, then by name ignoring
// case, with a case-sensitive tie-break so the order is total.
func sortDirEntries(items []os.DirEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		la, lb := strings.ToLower(a.Name()), strings.ToLower(b.Name())
		if la != lb {
			return la < lb
		}
		return a.Name() < b.Name()
	})
}
