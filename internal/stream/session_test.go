// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/answerstream/internal/query"
	"github.com/meshintel/answerstream/pkg/types"
)

// writeEvent writes one SSE frame and flushes it so the client sees the
// bytes immediately.
func writeEvent(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()
	fl, ok := w.(http.Flusher)
	require.True(t, ok, "response writer must support flushing")
	fmt.Fprintf(w, "data: %s\n\n", payload)
	fl.Flush()
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish in time")
	}
}

func TestSessionFullPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream-question", r.URL.Path)
		assert.Equal(t, "why is the sky blue", r.URL.Query().Get("query"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		sseHeaders(w)
		writeEvent(t, w, `{"status": "connected"}`)
		writeEvent(t, w, `{"status": "stage_update", "stage": "evaluation"}`)
		writeEvent(t, w, `{"status": "substage_update", "stage": "evaluation_complete", "canAnswer": true}`)
		writeEvent(t, w, `{"status": "stage_update", "stage": "paper_retrieval"}`)
		writeEvent(t, w, `{"status": "substage_update", "stage": "search_term_selected", "queryWord": "rayleigh scattering"}`)
		writeEvent(t, w, `{"status": "papers_finding", "papers": [{"id": "p1", "title": "Sky Color", "authors": "Jane Smith", "year": "2023"}]}`)
		writeEvent(t, w, `{"status": "substage_update", "stage": "papers_selected", "selectedPapers": [{"id": "p1", "title": "Sky Color"}]}`)
		writeEvent(t, w, `{"status": "stage_update", "stage": "paper_analysis"}`)
		writeEvent(t, w, `{"status": "substage_update", "stage": "paper_analysis_complete"}`)
		writeEvent(t, w, `{"status": "stage_update", "stage": "answer_generation"}`)
		writeEvent(t, w, `{"status": "streaming"}`)
		writeEvent(t, w, `{"status": "token", "token": "Rayleigh "}`)
		writeEvent(t, w, `{"status": "token", "token": "scattering."}`)
		writeEvent(t, w, `{"status": "complete", "result": {"answer": "Rayleigh scattering.", "citationMapping": [{"key": "Smith2023", "title": "Sky Color"}]}}`)
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, state, nil)

	require.NoError(t, s.Start("why is the sky blue"))
	waitDone(t, s)

	snap := state.Snapshot()
	require.True(t, snap.Complete)
	require.NoError(t, snap.Err)
	assert.False(t, snap.Streaming)
	assert.True(t, snap.Connected)
	assert.True(t, snap.CanAnswer)
	assert.Equal(t, "rayleigh scattering", snap.SearchTerm)
	assert.Equal(t, "Rayleigh scattering.", snap.Answer)
	assert.Equal(t, types.StageAnswerGeneration, snap.CurrentStage)
	assert.True(t, snap.StageCompleted(types.StageEvaluation))
	assert.True(t, snap.StageCompleted(types.StagePaperRetrieval))
	assert.True(t, snap.StageCompleted(types.StagePaperAnalysis))
	require.Len(t, snap.Papers, 1)
	assert.True(t, snap.Papers[0].IsSelected)
	assert.True(t, snap.Papers[0].IsCited)
}

func TestSessionEmptyQuery(t *testing.T) {
	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: "http://localhost:0"}, state, nil)

	assert.ErrorIs(t, s.Start(""), ErrEmptyQuery)
	assert.ErrorIs(t, s.Start("   \t\n"), ErrEmptyQuery)
	assert.False(t, state.Snapshot().Streaming, "rejected query must not touch state")
}

func TestSessionEventsAcrossChunkBoundaries(t *testing.T) {
	// Write the stream byte by byte so every frame crosses a transport
	// chunk boundary.
	raw := "data: {\"status\": \"connected\"}\n\n" +
		"data: {\"status\": \"token\", \"token\": \"Hi\"}\n\n" +
		"data: {\"status\": \"complete\"}\n\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		fl := w.(http.Flusher)
		for i := 0; i < len(raw); i++ {
			w.Write([]byte{raw[i]})
			fl.Flush()
		}
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))
	waitDone(t, s)

	snap := state.Snapshot()
	require.True(t, snap.Complete)
	assert.Equal(t, "Hi", snap.Answer)
}

func TestSessionUnexpectedDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeEvent(t, w, `{"status": "connected"}`)
		writeEvent(t, w, `{"status": "token", "token": "partial"}`)
		// Close without a complete event.
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))
	waitDone(t, s)

	snap := state.Snapshot()
	assert.False(t, snap.Complete)
	assert.ErrorIs(t, snap.Err, ErrUnexpectedDisconnect)
	assert.Equal(t, "partial", snap.Answer, "partial answer text survives the failure")
}

func TestSessionServerErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeEvent(t, w, `{"status": "connected"}`)
		writeEvent(t, w, `{"status": "error", "error": "model overloaded"}`)
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))
	waitDone(t, s)

	snap := state.Snapshot()
	var serr *ServerError
	require.ErrorAs(t, snap.Err, &serr)
	assert.Equal(t, "model overloaded", serr.Message)
	assert.False(t, snap.Complete)
}

func TestSessionCloseAfterCompleteIsBenign(t *testing.T) {
	// The transport closing right after the logical complete event must
	// not overwrite the successful terminal state.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeEvent(t, w, `{"status": "complete", "result": {"answer": "done"}}`)
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))
	waitDone(t, s)

	snap := state.Snapshot()
	assert.True(t, snap.Complete)
	assert.NoError(t, snap.Err)
}

func TestSessionFinishAfterServerError(t *testing.T) {
	// The server reports an error event and then closes the connection.
	// The clean close must not replace the server's error with a
	// disconnect error.
	state := query.New(nil)
	state.Fail(&ServerError{Message: "model overloaded"}, "backend error")

	s := NewSession(types.ClientConfig{BaseURL: "http://localhost:0"}, state, nil)
	r := &run{done: make(chan struct{})}
	s.finish(r, nil)

	snap := state.Snapshot()
	var serr *ServerError
	require.ErrorAs(t, snap.Err, &serr)
	assert.Equal(t, "model overloaded", serr.Message)
	assert.Equal(t, "backend error", snap.StatusMessage)
	assert.False(t, snap.Streaming)
}

func TestSessionFinishTransportErrorAfterComplete(t *testing.T) {
	// Exercise the suppression path directly with a hard transport error.
	state := query.New(nil)
	state.Complete(&types.Result{Answer: "done"})

	s := NewSession(types.ClientConfig{BaseURL: "http://localhost:0"}, state, nil)
	r := &run{done: make(chan struct{})}
	s.finish(r, errors.New("connection reset by peer"))

	snap := state.Snapshot()
	assert.True(t, snap.Complete)
	assert.NoError(t, snap.Err)
}

func TestSessionHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))
	waitDone(t, s)

	snap := state.Snapshot()
	require.Error(t, snap.Err)
	assert.Contains(t, snap.Err.Error(), "HTTP 500")
}

func TestSessionCancelRecordsNoError(t *testing.T) {
	entered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeEvent(t, w, `{"status": "connected"}`)
		close(entered)
		<-r.Context().Done()
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the request")
	}

	s.Cancel()

	snap := state.Snapshot()
	assert.NoError(t, snap.Err, "user cancellation is not a failure")
	assert.False(t, snap.Streaming)
	assert.False(t, snap.Complete)

	// Cancelling again is a no-op.
	s.Cancel()
}

func TestSessionStartRetiresPreviousRun(t *testing.T) {
	first := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		switch r.URL.Query().Get("query") {
		case "first":
			writeEvent(t, w, `{"status": "token", "token": "stale"}`)
			close(first)
			<-r.Context().Done()
		case "second":
			writeEvent(t, w, `{"status": "complete", "result": {"answer": "fresh"}}`)
		}
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)

	require.NoError(t, s.Start("first"))
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first stream never started")
	}

	require.NoError(t, s.Start("second"))
	waitDone(t, s)

	snap := state.Snapshot()
	require.True(t, snap.Complete)
	assert.Equal(t, "second", snap.Query)
	assert.Equal(t, "", snap.Answer, "no stale tokens from the retired stream")
	require.NotNil(t, snap.Result)
	assert.Equal(t, "fresh", snap.Result.Answer)
}

func TestSessionDecodeErrorIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeEvent(t, w, `{broken json`)
		writeEvent(t, w, `{"status": "token", "token": "ok"}`)
		writeEvent(t, w, `{"status": "complete"}`)
	}))
	defer srv.Close()

	state := query.New(nil)
	s := NewSession(types.ClientConfig{BaseURL: srv.URL}, state, nil)
	require.NoError(t, s.Start("q"))
	waitDone(t, s)

	snap := state.Snapshot()
	require.True(t, snap.Complete)
	assert.Equal(t, 1, snap.DecodeErrors)
	assert.Equal(t, "ok", snap.Answer)
}

func TestSessionDoneWithNoRun(t *testing.T) {
	s := NewSession(types.ClientConfig{BaseURL: "http://localhost:0"}, query.New(nil), nil)
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed with no active run")
	}
}
