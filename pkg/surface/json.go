package surface

import (
	"encoding/json"
	"io"

	"github.com/exotriage/exotriage/pkg/triage"
)

// JSONRenderer marshals results to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, page *Page) error {
	return encode(w, page)
}

func (r *JSONRenderer) RenderCandidate(w io.Writer, c *triage.Candidate) error {
	return encode(w, c)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
