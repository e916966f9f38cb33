package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

// DiscoveryResponse is the body of GET /api/discovery.
type DiscoveryResponse struct {
	TotalCandidates int    `json:"total_candidates"`
	Classified      int    `json:"classified"`
	ModelVersion    string `json:"model_version,omitempty"`
	RunID           string `json:"run_id,omitempty"`
	triagequery.Result
}

// DefaultRunTimeout bounds a discovery run shared by concurrent requests.
const DefaultRunTimeout = 2 * time.Minute

type cachedBatch struct {
	batch *discovery.Batch
	runID string
}

// loadBatch returns the enriched batch for the current dataset. Concurrent
// misses for the same fingerprint share one run. The run does not inherit
// the cancellation of the request that started it, so a disconnecting
// client cannot fail the requests waiting on the same run.
func (h *Handler) loadBatch(ctx context.Context) (*discovery.Batch, string, error) {
	fp, err := h.src.Fingerprint(ctx)
	if err != nil {
		return nil, "", err
	}
	if b, runID, ok := h.cache.Get(fp); ok {
		h.metrics.ObserveCache(true)
		return b, runID, nil
	}
	h.metrics.ObserveCache(false)
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	ch := h.inflight.DoChan(fp, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.runTimeout)
		defer cancel()

		b, err := h.svc.RunSource(runCtx, h.src)
		if err != nil {
			return nil, err
		}
		var runID string
		if h.recorder != nil {
			run, err := h.recorder.Record(runCtx, h.src.Name(), fp, b)
			if err != nil {
				h.logger.Warn("record run failed", zap.Error(err))
			} else {
				runID = run.ID
			}
		}
		h.cache.Put(fp, b, runID)
		return cachedBatch{batch: b, runID: runID}, nil
	})

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		c := res.Val.(cachedBatch)
		return c.batch, c.runID, nil
	}
}

func (h *Handler) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	q := triagequery.ParseQueryWithDefaults(r.URL.Query(), h.QueryDefaults())

	batch, runID, err := h.loadBatch(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// client went away
			return
		case errors.Is(err, source.ErrNotFound):
			writeError(w, http.StatusNotFound, "dataset not found")
		case errors.Is(err, discovery.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "models unavailable: "+err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "discovery run timed out")
		default:
			h.logger.Error("discovery failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "discovery failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, DiscoveryResponse{
		TotalCandidates: batch.Eligible,
		Classified:      batch.Classified,
		ModelVersion:    batch.ModelVersion,
		RunID:           runID,
		Result:          triagequery.Apply(batch.Candidates, q),
	})
}
