package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LFroesch/teditor/internal/fileops"
)

type fakeWatcher struct {
	watched  map[string]bool
	watchErr error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{watched: make(map[string]bool)}
}

func (f *fakeWatcher) Watch(path string) error {
	if f.watchErr != nil {
		return f.watchErr
	}
	f.watched[path] = true
	return nil
}

func (f *fakeWatcher) Unwatch(path string) error {
	delete(f.watched, path)
	return nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestOpenSaveRoundTrip(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		content := "line one\r\nline two\r\n"
		path := writeTemp(t, "crlf.txt", content)
		w := newFakeWatcher()
		s := NewSession(w, Options{AtomicSave: atomic})

		require.NoError(t, s.Open(path))
		assert.True(t, w.watched[path])
		assert.False(t, s.Dirty())

		require.NoError(t, s.Save())
		assert.Equal(t, content, readFile(t, path), "byte-identical after save without edits")
		assert.False(t, s.Dirty())
	}
}

func TestOpenFailures(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(bin, []byte{0x7f, 'E', 'L', 'F', 0, 0}, 0644))

	s := NewSession(newFakeWatcher(), Options{})
	for _, p := range []string{bin, filepath.Join(dir, "missing.txt"), dir} {
		err := s.Open(p)
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, fileops.ErrOpenFailed), "%s: %v", p, err)
		assert.False(t, s.IsOpen())
	}

	// A failed open leaves the current file alone
	good := writeTemp(t, "good.txt", "ok")
	require.NoError(t, s.Open(good))
	s.Apply(Op{Kind: OpInsert, Text: "!"})
	require.Error(t, s.Open(bin))
	assert.Equal(t, good, s.Path())
	assert.Equal(t, "!ok", s.Buffer().Content())
}

func TestWatchFailureDoesNotFailOpen(t *testing.T) {
	path := writeTemp(t, "a.txt", "a")
	w := newFakeWatcher()
	w.watchErr = errors.New("too many watches")
	s := NewSession(w, Options{})

	require.NoError(t, s.Open(path))
	assert.True(t, s.IsOpen())
	assert.Error(t, s.WatchErr())
}

func TestReloadIsIdempotent(t *testing.T) {
	path := writeTemp(t, "r.txt", "alpha\nbeta\n")
	s := NewSession(nil, Options{})
	require.NoError(t, s.Open(path))
	s.Buffer().SetCursor(1, 2)

	require.NoError(t, s.Reload())
	first := s.Buffer().Content()
	require.NoError(t, s.Reload())
	assert.Equal(t, first, s.Buffer().Content())
	row, col := s.Buffer().Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)
}

func TestEditSaveScenario(t *testing.T) {
	path := writeTemp(t, "notes.md", "hello")
	s := NewSession(newFakeWatcher(), Options{AtomicSave: true})
	require.NoError(t, s.Open(path))

	s.Apply(Op{Kind: OpEnd})
	s.Apply(Op{Kind: OpInsert, Text: " world"})
	assert.True(t, s.Dirty())

	require.NoError(t, s.Save())
	assert.Equal(t, "hello world", readFile(t, path))
	assert.False(t, s.Dirty())

	// The watcher echo of our own save is not an external change
	assert.False(t, s.OnExternalChange(path))
	assert.False(t, s.ExternallyChanged())
}

func TestExternalChangeThenReload(t *testing.T) {
	path := writeTemp(t, "ext.txt", "original")
	s := NewSession(newFakeWatcher(), Options{})
	require.NoError(t, s.Open(path))

	require.NoError(t, os.WriteFile(path, []byte("changed elsewhere"), 0644))
	assert.False(t, s.OnExternalChange(path+".other"), "other paths are ignored")
	assert.True(t, s.OnExternalChange(path))
	assert.True(t, s.ExternallyChanged())
	assert.Equal(t, DiskChanged, s.DiskStatus())
	assert.Equal(t, "original", s.Buffer().Content(), "content untouched")

	require.NoError(t, s.Reload())
	assert.Equal(t, "changed elsewhere", s.Buffer().Content())
	assert.False(t, s.ExternallyChanged())
	assert.False(t, s.Dirty())
}

func TestSaveOverExternalChangeWins(t *testing.T) {
	path := writeTemp(t, "lww.txt", "v1")
	s := NewSession(nil, Options{AtomicSave: true})
	require.NoError(t, s.Open(path))
	s.Apply(Op{Kind: OpEnd})
	s.Apply(Op{Kind: OpInsert, Text: "-mine"})

	require.NoError(t, os.WriteFile(path, []byte("v2-theirs"), 0644))
	require.True(t, s.OnExternalChange(path))

	require.NoError(t, s.Save())
	assert.Equal(t, "v1-mine", readFile(t, path))
	assert.False(t, s.ExternallyChanged())
}

func TestExternalDelete(t *testing.T) {
	path := writeTemp(t, "gone.txt", "bye")
	s := NewSession(nil, Options{})
	require.NoError(t, s.Open(path))

	require.NoError(t, os.Remove(path))
	assert.True(t, s.OnExternalChange(path))
	assert.Equal(t, DiskRemoved, s.DiskStatus())

	err := s.Reload()
	assert.True(t, errors.Is(err, fileops.ErrOpenFailed))
	assert.Equal(t, "bye", s.Buffer().Content(), "failed reload leaves the buffer")

	// Saving brings the file back
	require.NoError(t, s.Save())
	assert.Equal(t, "bye", readFile(t, path))
	assert.Equal(t, DiskInSync, s.DiskStatus())
}

func TestSaveFailureKeepsBufferDirty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "f.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	s := NewSession(nil, Options{AtomicSave: true})
	require.NoError(t, s.Open(path))
	s.Apply(Op{Kind: OpInsert, Text: "y"})

	// Replace the parent directory with a file so every write fails
	require.NoError(t, os.RemoveAll(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(filepath.Dir(path), []byte("blocker"), 0644))

	err := s.Save()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileops.ErrSaveFailed))
	assert.True(t, s.Dirty())
	assert.Equal(t, "yx", s.Buffer().Content())
}

func TestCloseNeverSaves(t *testing.T) {
	path := writeTemp(t, "c.txt", "keep")
	w := newFakeWatcher()
	s := NewSession(w, Options{})
	require.NoError(t, s.Open(path))
	s.Apply(Op{Kind: OpInsert, Text: "edit "})

	require.NoError(t, os.WriteFile(path, []byte("other"), 0644))
	s.OnExternalChange(path)
	s.Close()

	assert.False(t, s.IsOpen())
	assert.False(t, s.ExternallyChanged())
	assert.False(t, w.watched[path])
	assert.Equal(t, "other", readFile(t, path))
	assert.False(t, s.OnExternalChange(path))

	err := s.Save()
	assert.True(t, errors.Is(err, fileops.ErrSaveFailed))
}

func TestSaveThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0644))
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	s := NewSession(nil, Options{AtomicSave: true})
	require.NoError(t, s.Open(link))
	s.Apply(Op{Kind: OpEnd})
	s.Apply(Op{Kind: OpInsert, Text: " world"})
	require.NoError(t, s.Save())

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "link survives the save")
	assert.Equal(t, "hello world", readFile(t, target))
}
