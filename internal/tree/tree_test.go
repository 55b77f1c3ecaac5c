package tree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LFroesch/teditor/internal/fileops"
)

// fixture lays out files under a temp root; names ending in "/" are directories.
func fixture(t *testing.T, paths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(p), 0644))
	}
	return root
}

func relPaths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestListOrdering(t *testing.T) {
	root := fixture(t, "b.txt", "A.txt", "a.txt", "src/main.go", "src/lib/util.go", "Docs/readme.md", ".env", ".git/HEAD")

	entries, err := List(root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Docs", "Docs/readme.md",
		"src", "src/lib", "src/lib/util.go", "src/main.go",
		"A.txt", "a.txt", "b.txt",
	}, relPaths(entries))

	withHidden, err := List(root, true)
	require.NoError(t, err)
	assert.Contains(t, relPaths(withHidden), ".env")
	assert.NotContains(t, relPaths(withHidden), ".git", ".git is never listed")

	for _, e := range withHidden {
		if e.RelPath == ".env" {
			assert.True(t, e.Hidden)
		}
		if e.RelPath == "src/lib/util.go" {
			assert.Equal(t, 2, e.Depth)
			assert.Equal(t, "util.go", e.Name)
			assert.Equal(t, filepath.Join(root, "src", "lib", "util.go"), e.Path)
		}
	}
}

func TestIgnoredEntriesAreHidden(t *testing.T) {
	root := fixture(t, ".gitignore", "app.log", "main.go", "build/out.o")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\nbuild/\n"), 0644))

	w := NewWalker(root, Options{})
	require.NoError(t, w.Refresh())
	assert.Equal(t, []string{"main.go"}, relPaths(w.Entries()))

	w.SetShowHidden(true)
	require.NoError(t, w.Refresh())
	all := w.Entries()
	assert.Equal(t, []string{"build", "build/out.o", ".gitignore", "app.log", "main.go"}, relPaths(all))
	for _, e := range all {
		switch e.RelPath {
		case "app.log", "build":
			assert.True(t, e.Ignored, e.RelPath)
			assert.True(t, e.Hidden, e.RelPath)
		case "build/out.o":
			assert.True(t, e.Hidden, "descendant of a hidden directory")
		case "main.go":
			assert.False(t, e.Hidden)
		}
	}
}

func TestExtraIgnore(t *testing.T) {
	root := fixture(t, "keep.go", "skip.tmp")
	w := NewWalker(root, Options{ExtraIgnore: []string{"*.tmp"}})
	require.NoError(t, w.Refresh())
	assert.Equal(t, []string{"keep.go"}, relPaths(w.Entries()))
}

func TestExpandCollapse(t *testing.T) {
	root := fixture(t, "src/a.go", "src/b.go", "README.md")
	w := NewWalker(root, Options{})
	require.NoError(t, w.Refresh())

	assert.Equal(t, []string{"src", "README.md"}, relPaths(w.Visible()))

	assert.True(t, w.Toggle("src"))
	visible := w.Visible()
	assert.Equal(t, []string{"src", "src/a.go", "src/b.go", "README.md"}, relPaths(visible))
	assert.True(t, visible[0].Expanded)
	assert.Equal(t, visible[0].Depth+1, visible[1].Depth)

	assert.False(t, w.Toggle("src"))
	assert.Equal(t, []string{"src", "README.md"}, relPaths(w.Visible()))
}

func TestRefreshPreservesExpanded(t *testing.T) {
	root := fixture(t, "src/a.go", "tmp/x.txt")
	w := NewWalker(root, Options{})
	require.NoError(t, w.Refresh())
	w.SetExpanded("src", true)
	w.SetExpanded("tmp", true)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "new.go"), nil, 0644))
	require.NoError(t, os.RemoveAll(filepath.Join(root, "tmp")))
	require.NoError(t, w.Refresh())

	assert.True(t, w.IsExpanded("src"))
	assert.False(t, w.IsExpanded("tmp"), "vanished directories are forgotten")
	assert.Equal(t, []string{"src", "src/a.go", "src/new.go"}, relPaths(w.Visible()))
}

func TestReveal(t *testing.T) {
	root := fixture(t, "a/b/c/file.txt")
	w := NewWalker(root, Options{})
	require.NoError(t, w.Refresh())

	w.Reveal("a/b/c/file.txt")
	assert.Equal(t, []string{"a", "a/b", "a/b/c", "a/b/c/file.txt"}, relPaths(w.Visible()))
}

func TestCreate(t *testing.T) {
	root := fixture(t, "README.md")
	w := NewWalker(root, Options{})
	require.NoError(t, w.Refresh())

	e, err := w.Create("newfile.txt", File)
	require.NoError(t, err)
	assert.Equal(t, "newfile.txt", e.RelPath)
	assert.Equal(t, File, e.Kind)
	assert.FileExists(t, filepath.Join(root, "newfile.txt"))
	assert.Contains(t, relPaths(w.Visible()), "newfile.txt")

	e, err = w.Create("pkg/deep/", Dir)
	require.NoError(t, err)
	assert.Equal(t, "pkg/deep", e.RelPath)
	assert.DirExists(t, filepath.Join(root, "pkg", "deep"))

	e, err = w.Create("pkg/deep/x.go", File)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Depth)
}

func TestCreateFailures(t *testing.T) {
	root := fixture(t, "README.md")
	w := NewWalker(root, Options{})
	require.NoError(t, w.Refresh())
	before := w.Entries()

	for _, rel := range []string{"README.md", "", "../outside.txt", "a/../../outside.txt", "/etc/passwd"} {
		_, err := w.Create(rel, File)
		require.Error(t, err, rel)
		assert.True(t, errors.Is(err, fileops.ErrCreateFailed), "%q: %v", rel, err)
	}
	assert.Equal(t, before, w.Entries(), "listing unchanged after failures")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), "outside.txt"))
}

func TestResolveCreatePath(t *testing.T) {
	tests := []struct {
		base, input string
		rel         string
		kind        Kind
		wantErr     bool
	}{
		{"", "newfile.txt", "newfile.txt", File, false},
		{"", "notes/", "notes", Dir, false},
		{"src", "main.go", "src/main.go", File, false},
		{"src", "src/main.go", "src/main.go", File, false},
		{"src", "./util/x.go", "src/util/x.go", File, false},
		{"src", "../top.txt", "top.txt", File, false},
		{"", "../escape.txt", "", File, true},
		{"", "/abs/path", "", File, true},
		{"", "   ", "", File, true},
	}

	for _, tt := range tests {
		t.Run(tt.base+"|"+tt.input, func(t *testing.T) {
			rel, kind, err := ResolveCreatePath(tt.base, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rel, rel)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestPartialListing(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := fixture(t, "ok/a.txt", "locked/b.txt", "z.txt")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	w := NewWalker(root, Options{})
	err := w.Refresh()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileops.ErrWalkPartial))

	var pe *PartialError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"locked"}, pe.Paths)
	assert.Equal(t, []string{"locked", "ok", "ok/a.txt", "z.txt"}, relPaths(w.Entries()))
}

func TestMaxEntries(t *testing.T) {
	root := fixture(t, "a.txt", "b.txt", "c.txt")
	w := NewWalker(root, Options{MaxEntries: 2})
	err := w.Refresh()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileops.ErrWalkPartial))
	assert.Len(t, w.Entries(), 2)
}
