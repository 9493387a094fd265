package logwatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// SSESource reads log lines from a Server-Sent Events endpoint. Each event's
// data field carries one or more lines.
type SSESource struct {
	config *StreamConfig
	client *http.Client
}

// NewSSESource creates a new SSE log source.
func NewSSESource(config *StreamConfig) *SSESource {
	if config == nil {
		config = DefaultStreamConfig()
	}

	return &SSESource{
		config: config,
		client: newStreamClient(config.Timeout),
	}
}

// newStreamClient bounds connecting and waiting for response headers by
// timeout. The client itself has no timeout since the stream stays open for
// the whole run.
func newStreamClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}

	return &http.Client{Transport: transport}
}

// Lines implements Source.
func (s *SSESource) Lines(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string, 64)
	errs := make(chan error, 8)

	go func() {
		defer close(out)
		defer close(errs)
		s.connectWithRetry(ctx, out, errs)
	}()

	return out, errs
}

// connectWithRetry reconnects until ctx is done or attempts run out.
func (s *SSESource) connectWithRetry(ctx context.Context, out chan<- string, errs chan<- error) {
	attempts := 0
	lastEventID := ""

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.config.MaxReconnectAttempts > 0 && attempts >= s.config.MaxReconnectAttempts {
			sendError(errs, fmt.Errorf("max reconnect attempts reached"))
			return
		}

		id, err := s.doConnect(ctx, lastEventID, out)
		if id != "" {
			lastEventID = id
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			sendError(errs, fmt.Errorf("connection error: %w", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.ReconnectInterval):
			attempts++
		}
	}
}

// doConnect reads one SSE connection to its end and returns the last event ID.
func (s *SSESource) doConnect(ctx context.Context, lastEventID string, out chan<- string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	for key, value := range s.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return readEvents(ctx, resp.Body, out)
}

// readEvents parses an SSE stream and emits the data lines of each event.
func readEvents(ctx context.Context, r io.Reader, out chan<- string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		data   []string
		lastID string
	)

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line ends the event
		if line == "" {
			for _, l := range data {
				if !emit(ctx, out, l) {
					return lastID, ctx.Err()
				}
			}
			data = data[:0]
			continue
		}

		// Comment
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data = append(data, value)
		case "id":
			lastID = value
		}
	}

	return lastID, scanner.Err()
}

// WebSocketSource reads log lines from text frames of a WebSocket endpoint.
type WebSocketSource struct {
	config *StreamConfig
}

// NewWebSocketSource creates a new WebSocket log source.
func NewWebSocketSource(config *StreamConfig) *WebSocketSource {
	if config == nil {
		config = DefaultStreamConfig()
	}

	return &WebSocketSource{config: config}
}

// Lines implements Source.
func (w *WebSocketSource) Lines(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string, 64)
	errs := make(chan error, 8)

	go func() {
		defer close(out)
		defer close(errs)
		w.connectWithRetry(ctx, out, errs)
	}()

	return out, errs
}

// connectWithRetry reconnects until ctx is done or attempts run out.
func (w *WebSocketSource) connectWithRetry(ctx context.Context, out chan<- string, errs chan<- error) {
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if w.config.MaxReconnectAttempts > 0 && attempts >= w.config.MaxReconnectAttempts {
			sendError(errs, fmt.Errorf("max reconnect attempts reached"))
			return
		}

		err := w.doConnect(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			sendError(errs, fmt.Errorf("connection error: %w", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.ReconnectInterval):
			attempts++
		}
	}
}

// doConnect dials the endpoint and reads messages until the connection ends.
func (w *WebSocketSource) doConnect(ctx context.Context, out chan<- string) error {
	headers := http.Header{}
	for key, value := range w.config.Headers {
		headers.Set(key, value)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = w.config.Timeout

	conn, _, err := dialer.DialContext(ctx, w.config.Endpoint, headers)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("read error: %w", err)
			}
			return nil
		}
		if messageType != websocket.TextMessage {
			continue
		}

		for _, line := range strings.Split(strings.TrimRight(string(message), "\n"), "\n") {
			if !emit(ctx, out, strings.TrimRight(line, "\r")) {
				return nil
			}
		}
	}
}
