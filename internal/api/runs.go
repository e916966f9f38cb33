package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/exotriage/exotriage/internal/runs"
)

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	list, err := h.recorder.List(r.Context(), parseLimit(r, runs.DefaultListLimit))
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleRunTimeline(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	days, err := h.recorder.Timeline(r.Context(), parseLimit(r, maxRunLimit))
	if err != nil {
		h.logger.Error("run timeline failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build timeline")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": days})
}

const maxRunLimit = 500

// parseLimit reads ?limit=, keeping def when absent or out of range.
func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxRunLimit {
			return n
		}
	}
	return def
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	rep, err := h.recorder.Report(r.Context(), r.PathValue("runID"))
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
