// Package logwatch follows a Jenkins log and answers "has a line matching
// this pattern been logged yet" questions with a bounded wait.
package logwatch

import (
	"context"
	"errors"
	"time"
)

// Result is the outcome of a wait.
type Result int

const (
	// TimedOut means no matching line was seen before the deadline.
	TimedOut Result = iota
	// Matched means a matching line was seen.
	Matched
)

// String returns the string representation of the result.
func (r Result) String() string {
	switch r {
	case Matched:
		return "matched"
	case TimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// DefaultTimeout bounds a wait when the caller passes a non-positive timeout.
const DefaultTimeout = 2 * time.Minute

// historyLimit is the number of recent lines a Watcher always retains.
const historyLimit = 50000

var (
	// ErrNilPattern is returned when a wait is requested without a pattern.
	ErrNilPattern = errors.New("logwatch: pattern is required")

	// ErrNotStarted is returned when waiting on a watcher that was never started.
	ErrNotStarted = errors.New("logwatch: watcher not started")
)

// Source produces log lines.
//
// Lines starts producing in the background and returns immediately. The line
// channel is closed when the source is exhausted or ctx is done. Errors are
// reported on the error channel and do not necessarily end the stream.
type Source interface {
	Lines(ctx context.Context) (<-chan string, <-chan error)
}

// StreamConfig configures network sources.
type StreamConfig struct {
	// Endpoint is the stream URL (http(s) for SSE, ws(s) for WebSocket).
	Endpoint string

	// ReconnectInterval is how long to wait before reconnecting.
	ReconnectInterval time.Duration

	// MaxReconnectAttempts limits reconnects. Zero means unlimited.
	MaxReconnectAttempts int

	// Timeout bounds dialing, the TLS or WebSocket handshake and, for SSE,
	// the wait for response headers. It does not limit the open stream.
	Timeout time.Duration

	// Headers are additional headers sent when connecting.
	Headers map[string]string
}

// DefaultStreamConfig returns a default stream configuration.
func DefaultStreamConfig() *StreamConfig {
	return &StreamConfig{
		ReconnectInterval:    2 * time.Second,
		MaxReconnectAttempts: 0,
		Timeout:              30 * time.Second,
		Headers:              make(map[string]string),
	}
}

// sendError reports err without blocking the producer.
func sendError(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		// Channel full, drop
	}
}

// emit delivers a line unless ctx is done first.
func emit(ctx context.Context, out chan<- string, line string) bool {
	select {
	case out <- line:
		return true
	case <-ctx.Done():
		return false
	}
}
