package logwatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource follows a log file from its beginning, like `tail -F -n +1`.
//
// The parent directory is watched so the file may be created after the
// source starts, or rotated while it runs. A poll ticker backs up fsnotify
// on filesystems that do not deliver events (bind mounts, NFS).
type FileSource struct {
	path         string
	pollInterval time.Duration
}

// NewFileSource creates a source that follows path.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:         filepath.Clean(path),
		pollInterval: time.Second,
	}
}

// WithPollInterval sets the fallback poll interval. Zero disables polling.
func (s *FileSource) WithPollInterval(d time.Duration) *FileSource {
	s.pollInterval = d
	return s
}

// Lines implements Source.
func (s *FileSource) Lines(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string, 64)
	errs := make(chan error, 8)

	go s.run(ctx, out, errs)

	return out, errs
}

func (s *FileSource) run(ctx context.Context, out chan<- string, errs chan<- error) {
	defer close(out)
	defer close(errs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		sendError(errs, fmt.Errorf("create watcher: %w", err))
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		sendError(errs, fmt.Errorf("watch %q: %w", dir, err))
		return
	}

	t := &tail{path: s.path}
	defer t.close()

	var poll <-chan time.Time
	if s.pollInterval > 0 {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	if !s.drain(ctx, t, out, errs) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if !s.rotate(ctx, t, out, errs) {
					return
				}
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if !s.drain(ctx, t, out, errs) {
					return
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			sendError(errs, fmt.Errorf("watch %q: %w", s.path, err))

		case <-poll:
			if !s.drain(ctx, t, out, errs) {
				return
			}
		}
	}
}

// drain emits every complete line currently available. It returns false
// when ctx ended while emitting.
func (s *FileSource) drain(ctx context.Context, t *tail, out chan<- string, errs chan<- error) bool {
	lines, err := t.read()
	if err != nil {
		sendError(errs, err)
	}

	for _, line := range lines {
		if !emit(ctx, out, line) {
			return false
		}
	}
	return true
}

// rotate emits what is left in the file being rotated away, then closes it
// so the next read opens the new file at path. Lines written just before
// rotation are still readable through the open handle.
func (s *FileSource) rotate(ctx context.Context, t *tail, out chan<- string, errs chan<- error) bool {
	if t.file != nil {
		if !s.drain(ctx, t, out, errs) {
			return false
		}
	}
	t.close()
	return true
}

// tail tracks the read position in a followed file.
type tail struct {
	path    string
	file    *os.File
	offset  int64
	partial []byte
}

// read returns the complete lines appended since the last call.
func (t *tail) read() ([]string, error) {
	if t.file == nil {
		f, err := os.Open(t.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		t.file = f
		t.offset = 0
		t.partial = nil
	}

	info, err := t.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	// Truncated in place
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}

	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek log file: %w", err)
	}

	data, err := io.ReadAll(t.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(buf[:i], "\r")))
		buf = buf[i+1:]
	}
	t.partial = append([]byte(nil), buf...)

	return lines, nil
}

func (t *tail) close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}
