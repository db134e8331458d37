// Package files reads and writes the user files the chat session works with:
// context files loaded into the buffer or banks, prompt and script files, and
// completions saved with /save.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Errors
var (
	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIsDirectory      = errors.New("path is a directory")
	ErrProtectedPath    = errors.New("path is protected")
)

// blockedPaths are system directories that /save refuses to write into
var blockedPaths = []string{
	"/etc/", "/usr/", "/bin/", "/sbin/", "/boot/",
	"/sys/", "/proc/", "/dev/", "/lib/",
	"/System/", "/Library/", // macOS system paths
}

// Content is the result of a read
type Content struct {
	Path      string
	Text      string
	Size      int64
	Truncated bool
}

// Store reads and writes files relative to the working directory
type Store struct{}

// NewStore creates a file store
func NewStore() *Store {
	return &Store{}
}

// ReadFile reads path, keeping at most limit bytes when limit > 0.
// Truncation never splits a UTF-8 sequence.
func (s *Store) ReadFile(path string, limit int) (Content, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Content{}, fmt.Errorf("invalid path %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Content{}, classify(path, err)
	}
	if info.IsDir() {
		return Content{}, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return Content{}, classify(path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if limit > 0 {
		// One extra byte tells us whether anything was cut off
		r = io.LimitReader(f, int64(limit)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Content{}, classify(path, err)
	}

	truncated := false
	if limit > 0 && len(data) > limit {
		data = trimPartialRune(data[:limit])
		truncated = true
	}

	return Content{
		Path:      path,
		Text:      string(data),
		Size:      info.Size(),
		Truncated: truncated,
	}, nil
}

// WriteFile creates or overwrites a file with the given content.
// Creates parent directories if they don't exist.
func (s *Store) WriteFile(path, content string) error {
	if safe, reason := IsPathSafe(path); !safe {
		return fmt.Errorf("%w: %s", ErrProtectedPath, reason)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return classify(path, err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return classify(path, err)
	}
	return nil
}

// IsPathSafe checks if a path is safe for write operations.
// Returns (safe, reason) where reason explains why the path is blocked.
func IsPathSafe(path string) (bool, string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, "invalid path"
	}

	// Resolve symlinks so /etc -> /private/etc style aliases are caught
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	} else if resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(absPath)); err == nil {
		absPath = filepath.Join(resolvedDir, filepath.Base(absPath))
	}

	for _, blocked := range blockedPaths {
		if strings.HasPrefix(absPath, blocked) || strings.HasPrefix(absPath, "/private"+blocked) {
			return false, fmt.Sprintf("path %s is protected", blocked)
		}
	}

	return true, ""
}

// classify maps OS errors onto the package sentinels
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
}

func trimPartialRune(data []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(data) > 0 && !utf8.Valid(data); i++ {
		data = data[:len(data)-1]
	}
	return data
}
