// Package surface defines output rendering for exotriage results.
// Implementations handle different output targets: terminal and JSON.
package surface

import (
	"io"

	"github.com/exotriage/exotriage/pkg/triage"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

// Page is one rendered page of a discovery run.
type Page struct {
	Source          string `json:"source,omitempty"`
	RunID           string `json:"run_id,omitempty"`
	ModelVersion    string `json:"model_version,omitempty"`
	TotalCandidates int    `json:"total_candidates"`
	Classified      int    `json:"classified"`
	triagequery.Result
}

// Renderer produces formatted output for discovery pages and single
// candidates.
type Renderer interface {
	// Render writes a discovery page to the writer.
	Render(w io.Writer, page *Page) error
	// RenderCandidate writes one enriched candidate to the writer.
	RenderCandidate(w io.Writer, c *triage.Candidate) error
}

// ForFormat returns the renderer for "text" or "json".
func ForFormat(format string, verbose bool) (Renderer, bool) {
	switch format {
	case "", "text":
		return &TerminalRenderer{Verbose: verbose}, true
	case "json":
		return &JSONRenderer{}, true
	}
	return nil, false
}
