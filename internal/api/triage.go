package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/pkg/candidate"
	"github.com/exotriage/exotriage/pkg/triage"
)

const maxTriageBody = 1 << 20

// TriageResponse is the body of POST /api/triage.
type TriageResponse struct {
	ModelVersion string  `json:"model_version"`
	Confidence   float64 `json:"confidence"`
	triage.Candidate
}

type validationResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems"`
}

// parseTriageBody reads a JSON object of koi_* fields. Values may be numbers
// or numeric strings.
func parseTriageBody(r *http.Request) (candidate.Parameters, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return candidate.Parameters{}, fmt.Errorf("invalid request body: %w", err)
	}
	if len(body) == 0 {
		return candidate.Parameters{}, errors.New("no JSON body provided")
	}

	values := make(map[string]string, len(body))
	for k, v := range body {
		switch v := v.(type) {
		case nil:
		case json.Number:
			values[k] = v.String()
		case string:
			values[k] = v
		case bool:
			values[k] = strconv.FormatBool(v)
		default:
			values[k] = fmt.Sprint(v)
		}
	}

	return source.ParseRecord(values)
}

func joinProblems(problems []string) string {
	return strings.Join(problems, "; ")
}

func (h *Handler) handleTriage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTriageBody)
	p, err := parseTriageBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, version, err := h.svc.Triage(r.Context(), p)
	if err != nil {
		h.writeTriageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TriageResponse{
		ModelVersion: version,
		Confidence:   triage.Round(runs.Confidence(c.Inference), 4),
		Candidate:    c,
	})
}
