// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWriterNotifierCompleted(t *testing.T) {
	var buf strings.Builder
	n := &WriterNotifier{W: &buf}

	err := n.Notify(Event{
		Query:     "why is the sky blue",
		Completed: true,
		Elapsed:   1502 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	got := buf.String()
	want := "Query completed in 1.502s: \"why is the sky blue\"\n"
	if got != want {
		t.Errorf("notice = %q, want %q", got, want)
	}
}

func TestWriterNotifierFailed(t *testing.T) {
	var buf strings.Builder
	n := &WriterNotifier{W: &buf}

	err := n.Notify(Event{
		Query:   "q",
		Err:     errors.New("stream ended unexpectedly"),
		Elapsed: 250 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "Query failed after 250ms") || !strings.Contains(got, "stream ended unexpectedly") {
		t.Errorf("notice = %q", got)
	}
}

func TestNopDiscards(t *testing.T) {
	if err := (Nop{}).Notify(Event{Query: "q"}); err != nil {
		t.Errorf("Nop.Notify: %v", err)
	}
}
