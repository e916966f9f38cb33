package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/pkg/catalog"
	"github.com/exotriage/exotriage/pkg/triage"
)

// ClassifyResponse is the body of POST /api/explore/classify.
type ClassifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Radius     float64 `json:"radius"`
	LatencyMS  float64 `json:"latency_ms"`
}

func (h *Handler) handleExplore(w http.ResponseWriter, r *http.Request) {
	q := catalog.ParseQuery(r.URL.Query())

	b, ok := h.src.(source.Browsable)
	if !ok {
		writeError(w, http.StatusNotImplemented, "dataset cannot be browsed")
		return
	}
	recs, err := b.Records(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, source.ErrNotFound):
			writeError(w, http.StatusNotFound, "dataset not found")
		case errors.Is(err, context.Canceled):
			return
		default:
			h.logger.Error("explore failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read dataset")
		}
		return
	}

	writeJSON(w, http.StatusOK, catalog.Apply(catalog.FromRecords(recs), q))
}

// handleClassify is the compact form of triage for one dataset record.
func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxTriageBody)
	p, err := parseTriageBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, _, err := h.svc.Triage(r.Context(), p)
	if err != nil {
		h.writeTriageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClassifyResponse{
		Label:      c.Prediction,
		Confidence: triage.Round(runs.Confidence(c.Inference), 4),
		Radius:     triage.Round(c.Inference.PredictedRadius, 4),
		LatencyMS:  triage.Round(float64(time.Since(start).Microseconds())/1000, 1),
	})
}

func (h *Handler) writeTriageError(w http.ResponseWriter, err error) {
	var verr *discovery.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:    joinProblems(verr.Problems),
			Problems: verr.Problems,
		})
	case errors.Is(err, discovery.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "models unavailable: "+err.Error())
	default:
		h.logger.Error("triage failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "triage failed")
	}
}
