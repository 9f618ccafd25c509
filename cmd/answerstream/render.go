// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/meshintel/answerstream/internal/query"
	"github.com/meshintel/answerstream/pkg/types"
)

// progressRenderer turns query state snapshots into terminal output:
// status transitions go to statusW, answer text streams to out as it
// accumulates. Render is called from the stream goroutine, so it keeps
// its own lock.
type progressRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	statusW io.Writer

	lastStatus string
	printed    int
}

func newProgressRenderer(out, statusW io.Writer) *progressRenderer {
	return &progressRenderer{out: out, statusW: statusW}
}

// Render writes whatever changed since the last snapshot: a new status
// line, then any newly accumulated answer text.
func (r *progressRenderer) Render(snap query.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.StatusMessage != "" && snap.StatusMessage != r.lastStatus {
		fmt.Fprintf(r.statusW, "| %s\n", snap.StatusMessage)
		r.lastStatus = snap.StatusMessage
	}

	if len(snap.Answer) > r.printed {
		fmt.Fprint(r.out, snap.Answer[r.printed:])
		r.printed = len(snap.Answer)
	}
}

// Finish prints the closing summary for a completed query: the paper
// table and the citation list.
func (r *progressRenderer) Finish(snap query.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	if len(snap.Papers) > 0 {
		fmt.Fprintln(r.out)
		FormatPapers(snap.Papers, r.out)
	}
	if len(snap.Citations) > 0 {
		fmt.Fprintf(r.out, "\n%d citations in answer\n", len(snap.Citations))
	}
}

// FormatPapers writes papers as a human-readable table to w.
func FormatPapers(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-56s  %-20s  %-12s  %-3s  %s\n",
		"#", "Title", "Authors", "Year", "Sel", "Cited")
	fmt.Fprintln(w, strings.Repeat("-", 106))

	for i, p := range papers {
		title := truncate(p.Title, 56)
		authors := truncate(p.Authors, 20)
		year := truncate(p.Year, 12)
		fmt.Fprintf(w, "%-4d  %-56s  %-20s  %-12s  %-3s  %s\n",
			i+1, title, authors, year, mark(p.IsSelected), mark(p.IsCited))
	}

	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return ""
}

// truncate shortens s to at most max characters, counting runes so a
// multi-byte title is never cut mid-sequence.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
