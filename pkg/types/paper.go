// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Paper holds metadata for one paper surfaced by the research backend
// during a streamed query. Field names match the wire protocol; only
// Title is guaranteed to be present, every other field tolerates
// absence with a documented fallback.
type Paper struct {
	// ID is the server-issued identifier. When the server omits it, the
	// client generates one locally so dedup still has a stable key.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Title is the paper title. Mandatory on the wire.
	Title string `json:"title" yaml:"title"`

	// Authors is free text as sent by the server ("Jane Smith, Bob Lee").
	// Falls back to "Unknown Author" when absent.
	Authors string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is free text, not necessarily numeric ("2023", "in press").
	// Falls back to "Unknown Year" when absent.
	Year string `json:"year,omitempty" yaml:"year,omitempty"`

	// Source labels where the backend found the paper (e.g. "arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Link is the paper URL. Empty when the server sends none.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`

	// IsSelected marks papers the retrieval/analysis stage chose as
	// relevant. Set from papers_selected events; never cleared until reset.
	IsSelected bool `json:"isSelected,omitempty" yaml:"is_selected,omitempty"`

	// IsCited marks papers referenced in the synthesized answer. Set by
	// citation backfill after the terminal complete event.
	IsCited bool `json:"isCited,omitempty" yaml:"is_cited,omitempty"`
}

// Citation is one entry of the terminal result's citation mapping.
type Citation struct {
	// Key is the citation key in <LastName><Year> form, e.g. "Smith2023".
	Key string `json:"key" yaml:"key"`

	Title   string `json:"title" yaml:"title"`
	Authors string `json:"authors" yaml:"authors"`
	Year    string `json:"year" yaml:"year"`
	Link    string `json:"link" yaml:"link"`
}

// Image is a related image surfaced alongside papers. Collaborator
// data: the client dedups by URL and otherwise passes it through.
type Image struct {
	URL    string `json:"url" yaml:"url"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}
