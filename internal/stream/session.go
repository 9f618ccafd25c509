// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream manages one streaming HTTP connection to the research
// backend per logical query. It reassembles the SSE byte stream into
// discrete events, classifies them, and applies them to the query state
// in strict arrival order.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshintel/answerstream/internal/query"
	"github.com/meshintel/answerstream/pkg/types"
)

// streamPath is the backend's SSE endpoint.
const streamPath = "/stream-question"

const (
	defaultTimeout   = 5 * time.Minute
	defaultUserAgent = "answerstream/0.1"
)

// Session owns at most one active streaming connection. Starting a new
// query retires any previous connection before opening the next, so the
// query state is only ever mutated by one stream at a time.
type Session struct {
	cfg    types.ClientConfig
	client *http.Client
	state  *query.State
	logw   io.Writer

	mu      sync.Mutex
	current *run
}

// run tracks one connection's lifetime. The cancelled flag is checked
// before every event dispatch: once set, no further handler runs even if
// bytes are already in flight.
type run struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool
}

// NewSession creates a session bound to state. Warnings are written to
// logw; pass nil to discard them. The connection carries a long timeout
// (default 5m) sized for a multi-stage pipeline that can sit quiet
// between stages.
func NewSession(cfg types.ClientConfig, state *query.State, logw io.Writer) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logw == nil {
		logw = io.Discard
	}
	return &Session{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		state:  state,
		logw:   logw,
	}
}

// Start begins streaming a new query. It rejects empty or
// whitespace-only input with ErrEmptyQuery before any connection
// attempt, cancels and fully retires any previous connection, resets the
// query state, and returns immediately; all delivery is asynchronous.
func (s *Session) Start(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	s.mu.Lock()
	prev := s.current
	s.mu.Unlock()

	if prev != nil {
		prev.cancelled.Store(true)
		prev.cancel()
		<-prev.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.current = r
	s.mu.Unlock()

	s.state.Begin(trimmed)
	go s.stream(ctx, r, trimmed)
	return nil
}

// Cancel tears down the active connection without recording an error:
// explicit user cancellation is not a failure. Safe to call at any time,
// including before any bytes arrive or after completion (a no-op then).
// Once Cancel returns, no further handler invocations occur.
func (s *Session) Cancel() {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return
	}
	r.cancelled.Store(true)
	r.cancel()
	<-r.done
	s.state.EndStreaming()
}

// Done returns a channel closed when the current stream finishes
// (complete, error, or cancel). With no stream active the returned
// channel is already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.current.done
}

// stream opens the connection and pumps bytes until the stream ends.
// It runs on its own goroutine; all state mutation happens here, in
// arrival order.
func (s *Session) stream(ctx context.Context, r *run, question string) {
	defer close(r.done)

	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		s.finish(r, fmt.Errorf("invalid base URL %q: %w", s.cfg.BaseURL, err))
		return
	}
	u = u.JoinPath(streamPath)
	q := url.Values{}
	q.Set("query", question)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		s.finish(r, fmt.Errorf("creating request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.finish(r, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		s.finish(r, fmt.Errorf("backend returned HTTP %d", resp.StatusCode))
		return
	}

	c := &classifier{state: s.state, logw: s.logw}
	var framer Framer
	buf := make([]byte, 4096)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, payload := range framer.Push(buf[:n]) {
				if r.cancelled.Load() {
					return
				}
				c.dispatch(payload)
			}
		}
		if readErr == io.EOF {
			s.finish(r, nil)
			return
		}
		if readErr != nil {
			s.finish(r, readErr)
			return
		}
	}
}

// finish settles the query state when the transport layer is done with
// the stream. A cancelled run touches nothing. A query that already
// reached a terminal state (complete, or a server-reported error) is
// settled: the transport closing afterwards is benign and must not
// overwrite it. A clean close without a complete event is itself an
// error.
func (s *Session) finish(r *run, transportErr error) {
	if r.cancelled.Load() {
		return
	}

	if snap := s.state.Snapshot(); snap.Complete || snap.Err != nil {
		s.state.EndStreaming()
		return
	}

	if transportErr != nil {
		if errors.Is(transportErr, context.Canceled) {
			return
		}
		s.state.Fail(
			fmt.Errorf("connection error: %w", transportErr),
			"Connection to the research assistant failed",
		)
		return
	}

	s.state.Fail(ErrUnexpectedDisconnect, "The stream ended before an answer was completed")
}
