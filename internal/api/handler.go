// Package api implements the exotriage REST API: discovery over the
// configured candidate dataset, dataset browsing, single-candidate triage
// and run history.
package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/internal/telemetry"
	"github.com/exotriage/exotriage/pkg/candidate"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

// Handler is the top-level API handler.
type Handler struct {
	svc      *discovery.Service
	src      source.Source
	recorder *runs.Recorder
	cache    *BatchCache
	metrics  *telemetry.Metrics
	logger   *zap.Logger

	runTimeout time.Duration
	defaults   atomic.Pointer[triagequery.Query]
	inflight singleflight.Group
}

// Option configures a Handler.
type Option func(*Handler)

// WithRecorder records every fresh discovery run.
func WithRecorder(r *runs.Recorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// WithCache sets the batch cache.
func WithCache(c *BatchCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithMetrics exposes m on /metrics and records cache lookups.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithRunTimeout bounds a shared discovery run. Zero or less keeps
// DefaultRunTimeout.
func WithRunTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.runTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a new API handler serving discovery over src.
func NewHandler(svc *discovery.Service, src source.Source, opts ...Option) *Handler {
	h := &Handler{svc: svc, src: src, logger: zap.NewNop(), runTimeout: DefaultRunTimeout}
	for _, o := range opts {
		o(h)
	}
	if h.cache == nil {
		h.cache = NewBatchCacheFromEnv()
	}
	h.SetQueryDefaults(triagequery.DefaultQuery())
	return h
}

// SetQueryDefaults replaces the defaults applied to absent or invalid
// discovery query parameters. Safe for concurrent use.
func (h *Handler) SetQueryDefaults(q triagequery.Query) {
	q = q.Normalize()
	h.defaults.Store(&q)
}

// QueryDefaults returns the current discovery query defaults.
func (h *Handler) QueryDefaults() triagequery.Query {
	return *h.defaults.Load()
}

// RegisterRoutes registers all API routes on the given ServeMux. Write
// endpoints are wrapped with auth.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	// Write endpoints
	mux.Handle("POST /api/triage", auth(http.HandlerFunc(h.handleTriage)))
	mux.Handle("POST /api/explore/classify", auth(http.HandlerFunc(h.handleClassify)))

	// Read endpoints
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/features", h.handleFeatures)
	mux.HandleFunc("GET /api/discovery", h.handleDiscovery)
	mux.HandleFunc("GET /api/explore", h.handleExplore)
	mux.HandleFunc("GET /api/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/runs/timeline", h.handleRunTimeline)
	mux.HandleFunc("GET /api/runs/{runID}", h.handleGetRun)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

// ServerConfig holds the middleware settings for NewServer.
type ServerConfig struct {
	APIKey         string
	RequestTimeout time.Duration
}

// NewServer builds the complete HTTP handler: routes plus CORS, request
// logging and the request timeout.
func NewServer(h *Handler, cfg ServerConfig) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, APIKeyAuth(cfg.APIKey))

	var handler http.Handler = mux
	handler = Timeout(cfg.RequestTimeout)(handler)
	handler = RequestLog(h.logger)(handler)
	return CORS(handler)
}

type healthResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ModelsLoaded bool   `json:"models_loaded"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Message:      "exotriage API is running",
		ModelsLoaded: h.svc.ModelsLoaded(),
	})
}

func (h *Handler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, candidate.Features())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
