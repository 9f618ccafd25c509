// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"

	"github.com/google/uuid"

	"github.com/meshintel/answerstream/pkg/types"
)

// Fallback values for paper fields the server may omit.
const (
	UnknownAuthor = "Unknown Author"
	UnknownYear   = "Unknown Year"
)

// CitationKey derives the <LastName><Year> key used to correlate a paper
// with the terminal result's citation mapping: the last whitespace token
// of the author string ("Unknown" when empty) concatenated with the year
// verbatim. The citation table is built with the same derivation, so the
// two sides must stay byte-identical or cited flags silently fail to
// attach.
func CitationKey(authors, year string) string {
	surname := "Unknown"
	if fields := strings.Fields(authors); len(fields) > 0 {
		surname = fields[len(fields)-1]
	}
	return surname + year
}

// normalizePaper applies the documented fallbacks for absent fields: a
// locally generated ID, "Unknown Author", and "Unknown Year". Title is
// mandatory on the wire and passed through as-is.
func normalizePaper(p types.Paper) types.Paper {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Authors) == "" {
		p.Authors = UnknownAuthor
	}
	if strings.TrimSpace(p.Year) == "" {
		p.Year = UnknownYear
	}
	return p
}

// mergeFlags accumulates selection and citation flags from a duplicate
// record into the already-stored paper. Flags are a monotonic OR; a
// later event can turn a flag on but never off.
func mergeFlags(dst *types.Paper, src types.Paper) {
	if src.IsSelected {
		dst.IsSelected = true
	}
	if src.IsCited {
		dst.IsCited = true
	}
}
