package tvapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// retryAfterQueryError is used when resolving the SSE URL itself
	// failed (bad query, auth, upstream outage).
	retryAfterQueryError = 10 * time.Second
	// retryAfterStreamError is used when a previously-working stream
	// connection drops.
	retryAfterStreamError = 5 * time.Second
)

// StreamStatus is a point-in-time view of a Stream's connection state,
// surfaced by worker.Supervisor for the /api/status endpoint.
type StreamStatus struct {
	ObjectType string
	Connected  bool
	LastError  string
	UpdatedAt  time.Time
}

// Stream reconnects to the upstream SSE feed for one object type forever,
// delivering each raw `data:` payload to Run's sink. Grounded on
// TrafikverketStream.start_streaming's get-url -> stream -> reconnect loop.
type Stream struct {
	client     *Client
	objectType string
	counties   []int
	schema     string

	statusCh chan StreamStatus
}

// NewStream builds a Stream for one object type and county filter.
func NewStream(client *Client, objectType string, counties []int, schemaVersion string) *Stream {
	return &Stream{
		client:     client,
		objectType: objectType,
		counties:   counties,
		schema:     schemaVersion,
		statusCh:   make(chan StreamStatus, 1),
	}
}

// Status returns a channel of status updates; it's buffered 1 and only
// ever holds the latest value, so a slow reader sees the freshest state.
func (s *Stream) Status() <-chan StreamStatus {
	return s.statusCh
}

func (s *Stream) publishStatus(connected bool, err error) {
	st := StreamStatus{ObjectType: s.objectType, Connected: connected, UpdatedAt: time.Now()}
	if err != nil {
		st.LastError = err.Error()
	}
	select {
	case <-s.statusCh:
	default:
	}
	select {
	case s.statusCh <- st:
	default:
	}
}

// Run blocks, reconnecting until ctx is cancelled, delivering each raw
// `data:` line's payload to sink. sink must not block indefinitely; callers
// typically hand it a buffered channel send guarded by a select on ctx.Done.
func (s *Stream) Run(ctx context.Context, sink func([]byte)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sseURL, err := s.client.ResolveSSEURL(ctx, s.objectType, s.counties, s.schema)
		if err != nil {
			s.publishStatus(false, err)
			if waitOrDone(ctx, retryAfterQueryError) {
				return ctx.Err()
			}
			continue
		}

		err = s.consume(ctx, sseURL, sink)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.publishStatus(false, err)
			if waitOrDone(ctx, retryAfterStreamError) {
				return ctx.Err()
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Stream) consume(ctx context.Context, sseURL string, sink func([]byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sseURL, nil)
	if err != nil {
		return fmt.Errorf("tvapi: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", userAgent)

	httpClient := &http.Client{Timeout: 0}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tvapi: connect stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tvapi: stream returned status %d", resp.StatusCode)
	}

	s.publishStatus(true, nil)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		sink([]byte(payload))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("tvapi: stream read: %w", err)
	}
	return fmt.Errorf("tvapi: stream closed by upstream")
}

func waitOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
