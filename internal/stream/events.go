// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/meshintel/answerstream/internal/query"
	"github.com/meshintel/answerstream/pkg/types"
)

// Event status discriminators, as transmitted.
const (
	statusConnected     = "connected"
	statusStageUpdate   = "stage_update"
	statusSubstage      = "substage_update"
	statusPapersFinding = "papers_finding"
	statusImagesFound   = "images_found"
	statusStreaming     = "streaming"
	statusToken         = "token"
	statusChunkComplete = "chunk_complete"
	statusComplete      = "complete"
	statusError         = "error"
)

// Substage identifiers carried in the stage field of substage_update
// events. These are finer-grained progress markers, not pipeline stages.
const (
	substageEvaluationComplete    = "evaluation_complete"
	substageSearchTermSelected    = "search_term_selected"
	substagePapersSelected        = "papers_selected"
	substagePaperAnalysisComplete = "paper_analysis_complete"
)

// rawEvent is one decoded SSE payload. Which fields are populated
// depends on Status; the struct is ephemeral and never retained.
type rawEvent struct {
	Status         string        `json:"status"`
	Stage          string        `json:"stage,omitempty"`
	Message        string        `json:"message,omitempty"`
	Token          string        `json:"token,omitempty"`
	Count          int           `json:"count,omitempty"`
	Papers         []types.Paper `json:"papers,omitempty"`
	SelectedPapers []types.Paper `json:"selectedPapers,omitempty"`
	Images         []types.Image `json:"images,omitempty"`
	CanAnswer      *bool         `json:"canAnswer,omitempty"`
	QueryWord      string        `json:"queryWord,omitempty"`
	Result         *types.Result `json:"result,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// classifier decodes payload strings into typed events and applies them
// to the query state. Handlers run synchronously on the session's stream
// goroutine, so events are applied strictly in dispatch order.
type classifier struct {
	state *query.State
	logw  io.Writer
}

// dispatch decodes one payload and routes it to the matching handler.
// Decode failures (invalid JSON, missing status) are non-fatal; the
// payload is skipped and the stream continues. Unknown statuses are
// ignored for forward compatibility with server additions.
func (c *classifier) dispatch(payload string) {
	var ev rawEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		c.state.RecordDecodeError(err)
		return
	}
	if ev.Status == "" {
		c.state.RecordDecodeError(fmt.Errorf("event has no status field"))
		return
	}

	switch ev.Status {
	case statusConnected:
		c.state.SetConnected(ev.Message)

	case statusStageUpdate:
		stage := types.Stage(ev.Stage)
		if !stage.Known() {
			fmt.Fprintf(c.logw, "warning: ignoring stage_update for unknown stage %q\n", ev.Stage)
			return
		}
		c.state.SetStage(stage, ev.Message)

	case statusSubstage:
		c.substage(ev)

	case statusPapersFinding:
		c.state.AddPapers(ev.Papers)
		count := ev.Count
		if count == 0 {
			count = len(ev.Papers)
		}
		msg := ev.Message
		if msg == "" {
			msg = fmt.Sprintf("Found %d papers", count)
		}
		c.state.SetStatus(msg)

	case statusImagesFound:
		c.state.AddImages(ev.Images)
		if ev.Message != "" {
			c.state.SetStatus(ev.Message)
		}

	case statusStreaming:
		msg := ev.Message
		if msg == "" {
			msg = "Streaming answer"
		}
		c.state.SetStatus(msg)

	case statusToken:
		if ev.Token != "" {
			c.state.AppendToken(ev.Token)
		}

	case statusChunkComplete:
		if ev.Message != "" {
			c.state.SetStatus(ev.Message)
		}

	case statusComplete:
		c.state.Complete(ev.Result)

	case statusError:
		c.state.Fail(&ServerError{Message: ev.Error}, errorStatusMessage(ev))

	default:
		fmt.Fprintf(c.logw, "warning: ignoring unknown event status %q\n", ev.Status)
	}
}

// substage applies the side effects keyed by substage identifier, then
// updates the status message.
func (c *classifier) substage(ev rawEvent) {
	switch ev.Stage {
	case substageEvaluationComplete:
		if ev.CanAnswer != nil {
			c.state.SetCanAnswer(*ev.CanAnswer)
		}
		c.state.MarkStageCompleted(types.StageEvaluation)

	case substageSearchTermSelected:
		term := ev.QueryWord
		if term == "" {
			term = ev.Message
		}
		c.state.SetSearchTerm(term)

	case substagePapersSelected:
		c.state.SelectPapers(ev.SelectedPapers)
		c.state.MarkStageCompleted(types.StagePaperRetrieval)

	case substagePaperAnalysisComplete:
		c.state.MarkStageCompleted(types.StagePaperAnalysis)
	}

	if ev.Message != "" {
		c.state.SetStatus(ev.Message)
	}
}

func errorStatusMessage(ev rawEvent) string {
	if ev.Message != "" {
		return ev.Message
	}
	if ev.Error != "" {
		return "The research assistant reported an error: " + ev.Error
	}
	return "The research assistant reported an error"
}
