package fileops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCreateFile(t *testing.T) {
	tempDir := t.TempDir()

	// Test successful file creation
	err := CreateFile(tempDir, "testfile.txt")
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	// Verify file exists
	filePath := filepath.Join(tempDir, "testfile.txt")
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Error("File was not created")
	}

	// Test creating file that already exists
	err = CreateFile(tempDir, "testfile.txt")
	if err == nil {
		t.Error("Expected error when creating existing file")
	}
	if !errors.Is(err, ErrCreateFailed) {
		t.Errorf("expected ErrCreateFailed, got %v", err)
	}
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected cause fs.ErrExist, got %v", err)
	}
}

func TestCreateDir(t *testing.T) {
	tempDir := t.TempDir()

	// Test successful directory creation
	err := CreateDir(tempDir, "testdir")
	if err != nil {
		t.Fatalf("CreateDir failed: %v", err)
	}

	// Verify directory exists
	dirPath := filepath.Join(tempDir, "testdir")
	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		t.Error("Directory was not created")
	}
	if err == nil && !info.IsDir() {
		t.Error("Created path is not a directory")
	}

	// Test creating directory that already exists
	err = CreateDir(tempDir, "testdir")
	if err == nil {
		t.Error("Expected error when creating existing directory")
	}
	if !errors.Is(err, ErrCreateFailed) {
		t.Errorf("expected ErrCreateFailed, got %v", err)
	}
}

func TestReadText(t *testing.T) {
	tempDir := t.TempDir()

	textPath := filepath.Join(tempDir, "notes.md")
	os.WriteFile(textPath, []byte("hello\nwörld\n"), 0644)

	binPath := filepath.Join(tempDir, "blob.bin")
	os.WriteFile(binPath, []byte{'a', 0, 'b'}, 0644)

	latin1Path := filepath.Join(tempDir, "latin1.txt")
	os.WriteFile(latin1Path, []byte{'c', 'a', 'f', 0xe9}, 0644)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"utf8 text", textPath, "hello\nwörld\n", false},
		{"binary", binPath, "", true},
		{"invalid utf8", latin1Path, "", true},
		{"missing", filepath.Join(tempDir, "nope.txt"), "", true},
		{"directory", tempDir, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadText(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ReadText(%s) expected error", tt.name)
				}
				if !errors.Is(err, ErrOpenFailed) {
					t.Errorf("expected ErrOpenFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteText(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		tempDir := t.TempDir()
		path := filepath.Join(tempDir, "out.sh")
		os.WriteFile(path, []byte("old"), 0755)

		if err := WriteText(path, "new content\n", atomic); err != nil {
			t.Fatalf("WriteText(atomic=%v) failed: %v", atomic, err)
		}

		data, _ := os.ReadFile(path)
		if string(data) != "new content\n" {
			t.Errorf("content = %q, want %q", data, "new content\n")
		}

		info, _ := os.Stat(path)
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0755 {
			t.Errorf("mode = %v, want 0755 kept", info.Mode().Perm())
		}

		// No temp files left behind
		entries, _ := os.ReadDir(tempDir)
		if len(entries) != 1 {
			t.Errorf("expected only the target file in dir, found %d entries", len(entries))
		}
	}
}

func TestWriteTextKeepsLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	for _, atomic := range []bool{false, true} {
		tempDir := t.TempDir()
		orig := filepath.Join(tempDir, "real.txt")
		link := filepath.Join(tempDir, "link.txt")
		hard := filepath.Join(tempDir, "hard.txt")
		os.WriteFile(orig, []byte("hello"), 0644)
		if err := os.Symlink("real.txt", link); err != nil {
			t.Fatalf("Symlink failed: %v", err)
		}
		if err := os.Link(orig, hard); err != nil {
			t.Fatalf("Link failed: %v", err)
		}

		if err := WriteText(link, "via link", atomic); err != nil {
			t.Fatalf("WriteText(atomic=%v) through symlink failed: %v", atomic, err)
		}
		if info, err := os.Lstat(link); err != nil || info.Mode()&fs.ModeSymlink == 0 {
			t.Errorf("atomic=%v: link.txt is no longer a symlink", atomic)
		}
		for _, p := range []string{orig, hard} {
			if data, _ := os.ReadFile(p); string(data) != "via link" {
				t.Errorf("atomic=%v: %s = %q, want %q", atomic, filepath.Base(p), data, "via link")
			}
		}

		if err := WriteText(hard, "via hard link", atomic); err != nil {
			t.Fatalf("WriteText(atomic=%v) through hard link failed: %v", atomic, err)
		}
		if data, _ := os.ReadFile(orig); string(data) != "via hard link" {
			t.Errorf("atomic=%v: real.txt = %q after hard link write", atomic, data)
		}

		// No temp files left behind
		entries, _ := os.ReadDir(tempDir)
		if len(entries) != 3 {
			t.Errorf("atomic=%v: expected 3 entries in dir, found %d", atomic, len(entries))
		}
	}
}

func TestWriteTextFailure(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "missing-dir", "file.txt")

	err := WriteText(path, "x", true)
	if err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if !errors.Is(err, ErrSaveFailed) {
		t.Errorf("expected ErrSaveFailed, got %v", err)
	}
}

func TestFormatError(t *testing.T) {
	// Test with nil error
	err := FormatError(nil, "/test/path", "test operation")
	if err != nil {
		t.Error("FormatError should return nil for nil input")
	}

	// Test with generic error
	genericErr := os.ErrNotExist
	err = FormatError(genericErr, "/test/file.txt", "read")
	if err == nil {
		t.Error("FormatError should return error for non-nil input")
	}
	if err != nil && err.Error() != "read file.txt: no such file or directory" {
		t.Errorf("unexpected message %q", err.Error())
	}

	wrapped := &Error{Kind: ErrOpenFailed, Op: "open", Path: "/x/blob.bin", Err: errors.New("binary file")}
	err = FormatError(wrapped, "/x/blob.bin", "open")
	if err == nil || err.Error() != "open blob.bin: binary file" {
		t.Errorf("unexpected message %v", err)
	}
}
