// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Result is the payload of the terminal "complete" event. Field names
// match the wire protocol. Only Answer is always present.
type Result struct {
	// Answer is the full synthesized answer text. The token stream that
	// preceded the complete event carries the same content incrementally;
	// Answer is authoritative for archival.
	Answer string `json:"answer" yaml:"answer"`

	// QueryWord is the search term the backend settled on.
	QueryWord string `json:"queryWord,omitempty" yaml:"query_word,omitempty"`

	// Citations lists citation keys in the order they appear in the answer.
	Citations []string `json:"citations,omitempty" yaml:"citations,omitempty"`

	// PaperAnalysis is the backend's intermediate analysis summary.
	PaperAnalysis string `json:"paperAnalysis,omitempty" yaml:"paper_analysis,omitempty"`

	// CitationMapping resolves citation keys to full citation records.
	CitationMapping []Citation `json:"citationMapping,omitempty" yaml:"citation_mapping,omitempty"`

	// ProcessSteps describes the pipeline steps the backend executed.
	ProcessSteps []string `json:"processSteps,omitempty" yaml:"process_steps,omitempty"`
}
