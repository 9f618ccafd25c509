// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query holds the mutable aggregate a streamed query builds up:
// stage progression, the deduplicated paper set, the accumulating answer
// text, and the citation table. All mutation is serialized behind one
// mutex so network callbacks never interleave writes.
package query

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/meshintel/answerstream/pkg/types"
)

// State is the aggregate root for one in-flight query. A State instance
// is exclusively owned by one streaming session at a time; handlers
// mutate it strictly in event order.
type State struct {
	mu sync.Mutex

	query        string
	currentStage types.Stage
	completed    []types.Stage
	completedSet map[types.Stage]bool

	papers   []types.Paper
	paperIdx map[string]int // paper ID → index into papers
	titleIdx map[string]int // exact title → index into papers

	answer    strings.Builder
	citations map[string]types.Citation

	images    []types.Image
	imageSeen map[string]bool

	status       string
	connected    bool
	streaming    bool
	complete     bool
	canAnswer    bool
	searchTerm   string
	decodeErrors int
	err          error
	result       *types.Result

	onChange func(Snapshot)
	logw     io.Writer
}

// New returns an empty State. Warnings (protocol anomalies, skipped
// events) are written to logw; pass nil to discard them.
func New(logw io.Writer) *State {
	if logw == nil {
		logw = io.Discard
	}
	s := &State{logw: logw}
	s.resetLocked()
	return s
}

// OnChange registers fn to be called with a fresh snapshot after every
// mutation. The callback runs outside the state lock; there is one
// notification per applied event, not per changed field.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot holds a consistent read-only copy of the query state.
type Snapshot struct {
	Query           string
	CurrentStage    types.Stage
	CompletedStages []types.Stage
	Papers          []types.Paper
	Answer          string
	Citations       map[string]types.Citation
	Images          []types.Image
	StatusMessage   string
	Connected       bool
	Streaming       bool
	Complete        bool
	CanAnswer       bool
	SearchTerm      string
	DecodeErrors    int
	Err             error
	Result          *types.Result
}

// StageCompleted reports whether the given stage has been completed.
func (sn Snapshot) StageCompleted(stage types.Stage) bool {
	for _, st := range sn.CompletedStages {
		if st == stage {
			return true
		}
	}
	return false
}

// Snapshot returns a consistent copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Query:         s.query,
		CurrentStage:  s.currentStage,
		Answer:        s.answer.String(),
		StatusMessage: s.status,
		Connected:     s.connected,
		Streaming:     s.streaming,
		Complete:      s.complete,
		CanAnswer:     s.canAnswer,
		SearchTerm:    s.searchTerm,
		DecodeErrors:  s.decodeErrors,
		Err:           s.err,
		Result:        s.result,
	}
	snap.CompletedStages = append([]types.Stage(nil), s.completed...)
	snap.Papers = append([]types.Paper(nil), s.papers...)
	snap.Images = append([]types.Image(nil), s.images...)
	if len(s.citations) > 0 {
		snap.Citations = make(map[string]types.Citation, len(s.citations))
		for k, v := range s.citations {
			snap.Citations[k] = v
		}
	}
	return snap
}

// update runs mutate under the lock, then fires the change notification
// (if any) outside it.
func (s *State) update(mutate func()) {
	s.mu.Lock()
	mutate()
	fn := s.onChange
	var snap Snapshot
	if fn != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (s *State) resetLocked() {
	s.query = ""
	s.currentStage = ""
	s.completed = nil
	s.completedSet = make(map[types.Stage]bool)
	s.papers = nil
	s.paperIdx = make(map[string]int)
	s.titleIdx = make(map[string]int)
	s.answer.Reset()
	s.citations = nil
	s.images = nil
	s.imageSeen = make(map[string]bool)
	s.status = ""
	s.connected = false
	s.streaming = false
	s.complete = false
	s.canAnswer = false
	s.searchTerm = ""
	s.decodeErrors = 0
	s.err = nil
	s.result = nil
}

// Reset clears every field back to its fresh-instance default. The clear
// is atomic: no observer can see a partially reset state.
func (s *State) Reset() {
	s.update(s.resetLocked)
}

// Begin resets the state and marks a new query as streaming.
func (s *State) Begin(query string) {
	s.update(func() {
		s.resetLocked()
		s.query = query
		s.streaming = true
		s.status = "Connecting"
	})
}

// SetConnected records the connection acknowledgement.
func (s *State) SetConnected(message string) {
	s.update(func() {
		s.connected = true
		if message == "" {
			message = "Connected to research assistant"
		}
		s.status = message
	})
}

// SetStage moves the pipeline to a new current stage. A previously
// current stage is marked completed. Stage regression is a protocol
// anomaly: it is tolerated (the current stage is overwritten) but logged.
func (s *State) SetStage(stage types.Stage, message string) {
	s.update(func() {
		if s.currentStage != "" && s.currentStage != stage {
			if stage.Before(s.currentStage) {
				fmt.Fprintf(s.logw, "warning: stage regression from %s to %s\n", s.currentStage, stage)
			}
			s.markStageCompletedLocked(s.currentStage)
		}
		s.currentStage = stage
		if message == "" {
			message = stage.Label()
		}
		s.status = message
	})
}

// MarkStageCompleted records a stage as completed without changing the
// current stage. Substage events use this to close out stages the server
// reports as finished.
func (s *State) MarkStageCompleted(stage types.Stage) {
	s.update(func() {
		s.markStageCompletedLocked(stage)
	})
}

func (s *State) markStageCompletedLocked(stage types.Stage) {
	if !s.completedSet[stage] {
		s.completedSet[stage] = true
		s.completed = append(s.completed, stage)
	}
}

// SetStatus updates the human-readable progress description.
func (s *State) SetStatus(message string) {
	s.update(func() {
		s.status = message
	})
}

// SetCanAnswer records the evaluation stage's verdict.
func (s *State) SetCanAnswer(v bool) {
	s.update(func() {
		s.canAnswer = v
	})
}

// SetSearchTerm records the search term the backend selected.
func (s *State) SetSearchTerm(term string) {
	s.update(func() {
		s.searchTerm = term
	})
}

// AddPapers merges incoming papers into the collection. Identity is the
// paper ID: a paper already present is not duplicated, but selection and
// citation flags from the incoming record still accumulate (flags only
// ever turn on). New papers keep their arrival order. Returns the number
// of papers actually added.
func (s *State) AddPapers(incoming []types.Paper) int {
	added := 0
	s.update(func() {
		for _, p := range incoming {
			p = normalizePaper(p)
			if idx, ok := s.paperIdx[p.ID]; ok {
				mergeFlags(&s.papers[idx], p)
				continue
			}
			idx := len(s.papers)
			s.papers = append(s.papers, p)
			s.paperIdx[p.ID] = idx
			if _, ok := s.titleIdx[p.Title]; !ok {
				s.titleIdx[p.Title] = idx
			}
			added++
		}
	})
	return added
}

// SelectPapers marks the given papers as selected by the retrieval stage.
// Matching is by ID first, then by exact title: some server events
// identify selection by title only, so the title fallback is contractual
// even though it looks like a protocol inconsistency. Selected papers not
// present yet are appended.
func (s *State) SelectPapers(selected []types.Paper) {
	s.update(func() {
		for _, p := range selected {
			if idx, ok := s.paperIdx[p.ID]; p.ID != "" && ok {
				s.papers[idx].IsSelected = true
				continue
			}
			if idx, ok := s.titleIdx[p.Title]; ok {
				s.papers[idx].IsSelected = true
				continue
			}
			p = normalizePaper(p)
			p.IsSelected = true
			idx := len(s.papers)
			s.papers = append(s.papers, p)
			s.paperIdx[p.ID] = idx
			if _, ok := s.titleIdx[p.Title]; !ok {
				s.titleIdx[p.Title] = idx
			}
		}
	})
}

// AddImages appends images not already present, deduplicated by URL.
func (s *State) AddImages(images []types.Image) {
	s.update(func() {
		for _, img := range images {
			if img.URL == "" || s.imageSeen[img.URL] {
				continue
			}
			s.imageSeen[img.URL] = true
			s.images = append(s.images, img)
		}
	})
}

// AppendToken appends one token of answer text. This is the highest
// frequency operation on the state; strings.Builder keeps it O(1)
// amortized.
func (s *State) AppendToken(token string) {
	s.update(func() {
		s.answer.WriteString(token)
	})
}

// Complete records the terminal result. If the result carries a citation
// mapping, the citation table is populated and every paper whose derived
// citation key appears in it is flagged as cited.
func (s *State) Complete(result *types.Result) {
	s.update(func() {
		s.complete = true
		s.streaming = false
		s.result = result
		s.status = "Answer complete"
		if result == nil || len(result.CitationMapping) == 0 {
			return
		}
		s.citations = make(map[string]types.Citation, len(result.CitationMapping))
		for _, c := range result.CitationMapping {
			s.citations[c.Key] = c
		}
		for i := range s.papers {
			if _, ok := s.citations[CitationKey(s.papers[i].Authors, s.papers[i].Year)]; ok {
				s.papers[i].IsCited = true
			}
		}
	})
}

// Fail records a terminal error. A query that already reached a
// terminal state is not overwritten: transport-level close notifications
// arriving after the logical complete event (or after a server-reported
// error) are benign, and the first recorded error wins.
func (s *State) Fail(err error, message string) {
	s.update(func() {
		if s.complete || s.err != nil {
			return
		}
		s.err = err
		s.streaming = false
		if message != "" {
			s.status = message
		}
	})
}

// EndStreaming clears the streaming flag without touching terminal state.
func (s *State) EndStreaming() {
	s.update(func() {
		s.streaming = false
	})
}

// RecordDecodeError counts one malformed event payload. Decode errors
// are non-fatal: the event is skipped and the stream continues.
func (s *State) RecordDecodeError(cause error) {
	s.update(func() {
		s.decodeErrors++
		fmt.Fprintf(s.logw, "warning: skipping malformed event: %v\n", cause)
	})
}
