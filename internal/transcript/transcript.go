// Package transcript records chat exchanges to a flat log file.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quocvuong92/chatybot/internal/constants"
)

// ErrNotActive is returned by Append when no transcript is open
var ErrNotActive = errors.New("logging is not active")

const (
	fileTimeLayout  = "20060102_150405"
	entryTimeLayout = "2006-01-02 15:04:05"
)

// Logger writes a transcript per Start/Stop cycle
type Logger struct {
	mu        sync.Mutex
	dir       string
	now       func() time.Time
	file      *os.File
	writer    *bufio.Writer
	path      string
	sessionID string
}

// New creates a transcript logger writing into dir ("" means the working directory)
func New(dir string) *Logger {
	return &Logger{dir: dir, now: time.Now}
}

// Start opens chatybot.log.<timestamp>. Calling Start while active returns
// the open transcript's path.
func (l *Logger) Start() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.path, nil
	}

	started := l.now()
	path := filepath.Join(l.dir, constants.TranscriptPrefix+started.Format(fileTimeLayout))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open transcript: %w", err)
	}

	l.file = f
	l.writer = bufio.NewWriter(f)
	l.path = path
	l.sessionID = uuid.NewString()

	fmt.Fprintf(l.writer, "# chatybot session %s started %s\n\n", l.sessionID, started.Format(entryTimeLayout))
	if err := l.writer.Flush(); err != nil {
		l.closeLocked()
		return "", fmt.Errorf("failed to write transcript header: %w", err)
	}
	return path, nil
}

// Stop flushes and closes the transcript
func (l *Logger) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *Logger) closeLocked() error {
	if l.file == nil {
		return nil
	}
	flushErr := l.writer.Flush()
	closeErr := l.file.Close()
	l.file, l.writer, l.path, l.sessionID = nil, nil, "", ""
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Active reports whether a transcript is open
func (l *Logger) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

// Path returns the open transcript's path, or ""
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// SessionID returns the id written in the open transcript's header, or ""
func (l *Logger) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Append writes one exchange and flushes it to disk
func (l *Logger) Append(prompt, response string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrNotActive
	}

	ts := l.now().Format(entryTimeLayout)
	fmt.Fprintf(l.writer, "[%s] User: %s\n", ts, prompt)
	fmt.Fprintf(l.writer, "[%s] Assistant: %s\n\n", ts, response)
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
