package logwatch

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/CliForge/jenkins-acceptance/pkg/logging"
	"github.com/pterm/pterm"
)

// Watcher keeps every line read from a Source and lets callers block until
// a line matching a pattern shows up.
//
// Waits consider the whole history, so a line logged before the wait began
// still counts. History keeps at least the last historyLimit lines; older
// lines are discarded in batches, so up to twice that many may be held.
// Each wait scans the retained history once and then only new lines.
type Watcher struct {
	source Source
	logger *pterm.Logger
	echo   bool
	limit  int

	mu      sync.Mutex
	lines   []string
	dropped int
	notify  chan struct{}
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger used for source errors and echoed lines.
func WithLogger(logger *pterm.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithEcho logs every received line at trace level.
func WithEcho(echo bool) Option {
	return func(w *Watcher) {
		w.echo = echo
	}
}

// NewWatcher creates a watcher over source. Call Start before waiting.
func NewWatcher(source Source, opts ...Option) (*Watcher, error) {
	if source == nil {
		return nil, fmt.Errorf("log source is required")
	}

	w := &Watcher{
		source: source,
		limit:  historyLimit,
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrDiscard(w.logger)

	return w, nil
}

// Start begins consuming the source. It returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.started = true

	lines, errs := w.source.Lines(ctx)
	go w.consume(ctx, lines, errs)

	return nil
}

// consume appends lines to the history until the source ends or ctx is done.
func (w *Watcher) consume(ctx context.Context, lines <-chan string, errs <-chan error) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case line, ok := <-lines:
			if !ok {
				w.logger.Debug("log source closed")
				return
			}
			w.append(line)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("log source error", w.logger.Args("error", err))
		}
	}
}

// append records a line and wakes all waiters.
func (w *Watcher) append(line string) {
	if w.echo {
		w.logger.Trace(line)
	}

	w.mu.Lock()
	w.lines = append(w.lines, line)
	if w.limit > 0 && len(w.lines) >= 2*w.limit {
		drop := len(w.lines) - w.limit
		w.lines = append([]string(nil), w.lines[drop:]...)
		w.dropped += drop
	}
	close(w.notify)
	w.notify = make(chan struct{})
	w.mu.Unlock()
}

// WaitUntilLogged blocks until a line matching pattern has been seen, the
// timeout elapses or ctx is done.
//
// A non-positive timeout uses DefaultTimeout. Cancellation returns TimedOut
// together with the context error.
func (w *Watcher) WaitUntilLogged(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration) (Result, error) {
	if pattern == nil {
		return TimedOut, ErrNilPattern
	}

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return TimedOut, ErrNotStarted
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	w.logger.Debug("waiting for log line",
		w.logger.Args("pattern", pattern.String(), "timeout", timeout.String()))

	// next is an absolute line number; lines before w.dropped are gone.
	next := 0
	for {
		w.mu.Lock()
		if next < w.dropped {
			next = w.dropped
		}
		pending := w.lines[next-w.dropped:]
		notify := w.notify
		w.mu.Unlock()

		for _, line := range pending {
			if pattern.MatchString(line) {
				w.logger.Debug("log line matched", w.logger.Args("line", line))
				return Matched, nil
			}
		}
		next += len(pending)

		select {
		case <-notify:
		case <-timer.C:
			w.logger.Debug("log wait timed out", w.logger.Args("pattern", pattern.String()))
			return TimedOut, nil
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		}
	}
}

// Lines returns a copy of the retained history.
func (w *Watcher) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]string(nil), w.lines...)
}

// Close stops consuming the source and waits for the reader to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	started := w.started
	cancel := w.cancel
	w.mu.Unlock()

	if !started {
		return nil
	}

	cancel()
	<-w.done
	return nil
}
