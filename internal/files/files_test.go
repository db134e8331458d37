package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestDir creates a temporary directory that is not under blocked paths
func createTestDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "chatybot-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestIsPathSafe(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantSafe bool
	}{
		{"safe relative path", "answer.py", true},
		{"safe absolute path in tmp", "/tmp/answer.py", true},
		{"blocked /etc path", "/etc/passwd", false},
		{"blocked /usr path", "/usr/bin/test", false},
		{"blocked /proc path", "/proc/1/status", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, _ := IsPathSafe(tt.path)
			if safe != tt.wantSafe {
				t.Errorf("IsPathSafe(%q) = %v, want %v", tt.path, safe, tt.wantSafe)
			}
		})
	}
}

func TestStore_ReadFile(t *testing.T) {
	dir := createTestDir(t)
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("Hello, World!"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	store := NewStore()

	t.Run("read existing file", func(t *testing.T) {
		got, err := store.ReadFile(path, 0)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if got.Text != "Hello, World!" || got.Truncated {
			t.Errorf("ReadFile() = %+v", got)
		}
		if got.Size != 13 {
			t.Errorf("Size = %d, want 13", got.Size)
		}
	})

	t.Run("limit larger than file", func(t *testing.T) {
		got, err := store.ReadFile(path, 4096)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if got.Truncated {
			t.Error("Truncated should be false")
		}
	})

	t.Run("exact limit is not truncated", func(t *testing.T) {
		got, err := store.ReadFile(path, 13)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if got.Truncated || got.Text != "Hello, World!" {
			t.Errorf("ReadFile() = %+v", got)
		}
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := store.ReadFile(filepath.Join(dir, "missing.txt"), 0)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		if err != nil && !strings.Contains(err.Error(), "missing.txt") {
			t.Errorf("error should name the path: %v", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		_, err := store.ReadFile(dir, 0)
		if !errors.Is(err, ErrIsDirectory) {
			t.Errorf("error = %v, want ErrIsDirectory", err)
		}
	})
}

func TestStore_ReadFile_Truncation(t *testing.T) {
	dir := createTestDir(t)
	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 5000)), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	got, err := NewStore().ReadFile(path, 4096)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !got.Truncated {
		t.Error("Truncated should be true")
	}
	if len(got.Text) != 4096 {
		t.Errorf("len(Text) = %d, want 4096", len(got.Text))
	}
	if got.Size != 5000 {
		t.Errorf("Size = %d, want 5000", got.Size)
	}
}

func TestStore_ReadFile_TruncationKeepsRunesWhole(t *testing.T) {
	dir := createTestDir(t)
	path := filepath.Join(dir, "utf8.txt")
	// "é" is two bytes; a 3-byte limit would cut the second one in half
	if err := os.WriteFile(path, []byte("éé"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	got, err := NewStore().ReadFile(path, 3)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got.Text != "é" || !got.Truncated {
		t.Errorf("ReadFile() = %+v, want one whole rune", got)
	}
}

func TestStore_ReadFile_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	dir := createTestDir(t)
	path := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(path, []byte("x"), 0000); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := NewStore().ReadFile(path, 0)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("error = %v, want ErrPermissionDenied", err)
	}
}

func TestStore_WriteFile(t *testing.T) {
	dir := createTestDir(t)
	store := NewStore()

	t.Run("write new file with parent dirs", func(t *testing.T) {
		path := filepath.Join(dir, "out", "answer.py")
		if err := store.WriteFile(path, "print('hi')\n"); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read written file: %v", err)
		}
		if string(data) != "print('hi')\n" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		path := filepath.Join(dir, "over.txt")
		_ = store.WriteFile(path, "first")
		if err := store.WriteFile(path, "second"); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "second" {
			t.Errorf("content = %q, want %q", data, "second")
		}
	})

	t.Run("blocked path", func(t *testing.T) {
		err := store.WriteFile("/etc/chatybot-test", "x")
		if !errors.Is(err, ErrProtectedPath) {
			t.Errorf("error = %v, want ErrProtectedPath", err)
		}
	})
}
