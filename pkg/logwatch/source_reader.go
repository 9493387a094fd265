package logwatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ReaderSource reads newline separated lines from an io.Reader, such as
// standard input piped from `docker logs -f`.
type ReaderSource struct {
	r io.Reader
}

// NewReaderSource creates a source over r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Lines implements Source.
func (s *ReaderSource) Lines(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if !emit(ctx, out, strings.TrimRight(scanner.Text(), "\r")) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sendError(errs, fmt.Errorf("failed to read log: %w", err))
		}
	}()

	return out, errs
}

// StaticSource replays a fixed set of lines.
type StaticSource struct {
	lines []string
}

// NewStaticSource creates a source that yields lines and then closes.
func NewStaticSource(lines ...string) *StaticSource {
	return &StaticSource{lines: lines}
}

// Lines implements Source.
func (s *StaticSource) Lines(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string, len(s.lines))
	errs := make(chan error)

	go func() {
		defer close(out)
		defer close(errs)

		for _, line := range s.lines {
			if !emit(ctx, out, line) {
				return
			}
		}
	}()

	return out, errs
}
