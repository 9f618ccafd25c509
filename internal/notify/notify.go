// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers "request completed" signals. The notifier is
// an explicitly constructed, dependency-injected service owned by
// whoever owns the streaming session, not process-wide ambient state.
package notify

import (
	"fmt"
	"io"
	"time"
)

// Event describes one finished query.
type Event struct {
	// Query is the question that was asked.
	Query string

	// Completed is true when the backend delivered a full answer;
	// false when the query ended in an error.
	Completed bool

	// Err is the terminal error for failed queries.
	Err error

	// Elapsed is the wall time from start to terminal state.
	Elapsed time.Duration
}

// Notifier receives completion signals for finished queries.
type Notifier interface {
	Notify(ev Event) error
}

// WriterNotifier writes a one-line completion notice to w.
type WriterNotifier struct {
	W io.Writer
}

// Notify writes the completion notice.
func (n *WriterNotifier) Notify(ev Event) error {
	if ev.Completed {
		_, err := fmt.Fprintf(n.W, "Query completed in %s: %q\n", ev.Elapsed.Round(time.Millisecond), ev.Query)
		return err
	}
	_, err := fmt.Fprintf(n.W, "Query failed after %s: %q: %v\n", ev.Elapsed.Round(time.Millisecond), ev.Query, ev.Err)
	return err
}

// Nop is a Notifier that discards every event.
type Nop struct{}

// Notify discards the event.
func (Nop) Notify(Event) error { return nil }
