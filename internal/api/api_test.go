package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotriage/exotriage/internal/archive"
	"github.com/exotriage/exotriage/internal/discovery"
	"github.com/exotriage/exotriage/internal/platform"
	"github.com/exotriage/exotriage/internal/runs"
	"github.com/exotriage/exotriage/internal/source"
	"github.com/exotriage/exotriage/internal/telemetry"
	"github.com/exotriage/exotriage/pkg/catalog"
	"github.com/exotriage/exotriage/pkg/inference"
	"github.com/exotriage/exotriage/pkg/triage"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

const (
	sampleCSV = "../../testdata/koi_sample.csv"
	modelPath = "../../testdata/model.json"
)

type fixture struct {
	server  http.Handler
	handler *Handler
	metrics *telemetry.Metrics
}

func newFixture(t *testing.T, dataset, model, apiKey string) *fixture {
	t.Helper()
	db, _, err := platform.Open("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := telemetry.NewMetrics(nil)
	loader := inference.NewLoader(inference.NewArtifactProvider(archive.FileStore{}, model), nil)
	svc := discovery.NewService(loader, discovery.WithMetrics(metrics))
	rec := runs.NewRecorder(runs.NewService(db), archive.NewLocalStorage(t.TempDir()), nil)

	h := NewHandler(svc, source.NewCSVSource(dataset),
		WithRecorder(rec),
		WithCache(NewBatchCache(4)),
		WithMetrics(metrics),
	)
	return &fixture{
		server:  NewServer(h, ServerConfig{APIKey: apiKey, RequestTimeout: 10 * time.Second}),
		handler: h,
		metrics: metrics,
	}
}

func (f *fixture) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndFeatures(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	rec := f.do(t, "GET", "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.ModelsLoaded)

	rec = f.do(t, "GET", "/api/features", "")
	require.Equal(t, http.StatusOK, rec.Code)
	features := decode[[]map[string]any](t, rec)
	require.Len(t, features, 10)
	assert.Equal(t, "koi_period", features[0]["name"])
}

func TestDiscovery(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	rec := f.do(t, "GET", "/api/discovery", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DiscoveryResponse](t, rec)

	assert.Equal(t, 4, resp.TotalCandidates, "CANDIDATE rows, complete or not")
	assert.Equal(t, 3, resp.Classified)
	assert.Equal(t, 3, resp.TotalFiltered)
	assert.Equal(t, 1, resp.Pages)
	assert.Len(t, resp.Data, 3)
	assert.NotEmpty(t, resp.ModelVersion)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 3, resp.Summary.ConfirmedPredictions)
	assert.Len(t, resp.Summary.PriorityDistribution, 3)

	for i := 1; i < len(resp.Data); i++ {
		assert.GreaterOrEqual(t, resp.Data[i-1].PriorityScore, resp.Data[i].PriorityScore, "default sort is score desc")
	}
}

func TestDiscoveryUsesCache(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	first := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery", ""))
	second := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery?per_page=1&page=2", ""))

	assert.Equal(t, first.RunID, second.RunID, "cached batch keeps its run")
	assert.Equal(t, 3, second.Pages)
	assert.Len(t, second.Data, 1)
	assert.Equal(t, first.Data[1].ID, second.Data[0].ID)

	list := decode[[]runs.Run](t, f.do(t, "GET", "/api/runs", ""))
	assert.Len(t, list, 1, "a cache hit records no new run")

	metrics := f.do(t, "GET", "/metrics", "").Body.String()
	assert.Contains(t, metrics, `exotriage_batch_cache_requests_total{result="hit"} 1`)
	assert.Contains(t, metrics, `exotriage_batch_cache_requests_total{result="miss"} 1`)
}

// gatedSource holds Rows until release is closed and reports the context
// the read ran under.
type gatedSource struct {
	source.Source
	release chan struct{}
	readErr chan error
}

func (s *gatedSource) Rows(ctx context.Context) ([]source.Row, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	s.readErr <- ctx.Err()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Source.Rows(ctx)
}

func TestDiscoverySharedRunOutlivesCancelledRequest(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")
	src := &gatedSource{
		Source:  source.NewCSVSource(sampleCSV),
		release: make(chan struct{}),
		readErr: make(chan error, 1),
	}
	f.handler.src = src

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		req := httptest.NewRequest("GET", "/api/discovery", nil).WithContext(ctx)
		f.server.ServeHTTP(httptest.NewRecorder(), req)
	}()

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		second <- f.do(t, "GET", "/api/discovery", "")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-firstDone

	close(src.release)
	rec := <-second
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[DiscoveryResponse](t, rec).Classified)
	assert.NoError(t, <-src.readErr, "shared run must not inherit the first request's cancellation")

	list := decode[[]runs.Run](t, f.do(t, "GET", "/api/runs", ""))
	assert.Len(t, list, 1, "both requests shared one run")
}

func TestDiscoveryRunTimeout(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")
	src := &gatedSource{
		Source:  source.NewCSVSource(sampleCSV),
		release: make(chan struct{}),
		readErr: make(chan error, 1),
	}
	f.handler.src = src
	WithRunTimeout(20 * time.Millisecond)(f.handler)

	rec := f.do(t, "GET", "/api/discovery", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code, rec.Body.String())
	assert.ErrorIs(t, <-src.readErr, context.DeadlineExceeded)
}

func TestDiscoveryFilters(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	hz := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery?hz_only=true", ""))
	assert.Equal(t, 2, hz.TotalFiltered)
	for _, c := range hz.Data {
		assert.True(t, c.InHabitableZone, c.ID)
	}

	stellar := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery?role="+url.QueryEscape(triage.RoleStellar), ""))
	require.Equal(t, 1, stellar.TotalFiltered)
	assert.Equal(t, "K00004.01", stellar.Data[0].ID)

	// invalid values fall back to defaults
	bad := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery?page=x&per_page=-3&sort=bogus", ""))
	assert.Equal(t, 1, bad.Page)
	assert.Equal(t, triagequery.DefaultPerPage, bad.PerPage)
}

func TestDiscoveryQueryDefaults(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")
	def := triagequery.DefaultQuery()
	def.PerPage = 2
	f.handler.SetQueryDefaults(def)

	resp := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery", ""))
	assert.Equal(t, 2, resp.PerPage)
	assert.Len(t, resp.Data, 2)
}

func TestDiscoveryErrors(t *testing.T) {
	missing := newFixture(t, "../../testdata/nope.csv", modelPath, "")
	rec := missing.do(t, "GET", "/api/discovery", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	noModel := newFixture(t, sampleCSV, "../../testdata/nope.json", "")
	rec = noModel.do(t, "GET", "/api/discovery", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "models unavailable")
}

const validBody = `{
  "kepoi_name": "K09999.01",
  "koi_period": 12.3, "koi_impact": 0.2, "koi_duration": 3.1, "koi_depth": "50",
  "koi_model_snr": 8, "koi_steff": 5000, "koi_slogg": 4.4, "koi_srad": 1.0,
  "koi_smass": 1.0, "koi_smet": 0.0, "koi_insol": 1.0, "koi_count": 1
}`

func TestTriage(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	rec := f.do(t, "POST", "/api/triage", validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[TriageResponse](t, rec)
	assert.Equal(t, "K09999.01", resp.ID)
	assert.Equal(t, triage.PredictionConfirmed, resp.Prediction)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-4)
	assert.True(t, resp.InHabitableZone)
	require.NotEmpty(t, resp.Roles)
	assert.Equal(t, triage.RoleRadialVelocity, resp.Roles[0].Role)
}

func TestTriageBadInput(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{`, "invalid request body"},
		{"empty", `{}`, "no JSON body provided"},
		{"missing field", strings.Replace(validBody, `"koi_depth": "50",`, "", 1), "missing required field: koi_depth"},
		{"non-numeric", strings.Replace(validBody, `"50"`, `"deep"`, 1), "koi_depth must be numeric"},
		{"out of range", strings.Replace(validBody, `"koi_steff": 5000`, `"koi_steff": 100`, 1), "koi_steff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, "POST", "/api/triage", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[map[string]any](t, rec)["error"], tt.want)
		})
	}
}

func TestTriageRequiresAPIKey(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "secret")

	rec := f.do(t, "POST", "/api/triage", validBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "POST", "/api/triage", validBody, "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	// reads stay open
	rec = f.do(t, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRuns(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")
	disc := decode[DiscoveryResponse](t, f.do(t, "GET", "/api/discovery", ""))

	rec := f.do(t, "GET", "/api/runs/"+disc.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decode[runs.Report](t, rec)
	assert.Equal(t, disc.RunID, rep.ID)
	assert.Equal(t, 3, rep.Classified)
	require.NotNil(t, rep.Statistics)
	assert.Equal(t, 3, rep.Statistics.Total)
	assert.Equal(t, 3, rep.Statistics.RadiusBuckets[2].Count, "radius 3.0 is Super-Earth")

	rec = f.do(t, "GET", "/api/runs/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "GET", "/api/runs/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	timeline := decode[struct {
		Timeline []runs.TimelineDay `json:"timeline"`
	}](t, rec)
	require.Len(t, timeline.Timeline, 1)
	assert.Equal(t, 1, timeline.Timeline[0].Runs)
	assert.Equal(t, 3, timeline.Timeline[0].Total)
	assert.Equal(t, 3, timeline.Timeline[0].Confirmed)
}

func TestExplore(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")

	rec := f.do(t, "GET", "/api/explore", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all := decode[catalog.Result](t, rec)
	assert.Equal(t, 6, all.Total, "every disposition is browsable")
	assert.Equal(t, map[string]int{"CANDIDATE": 4, "CONFIRMED": 1, "FALSE POSITIVE": 1}, all.DispositionCounts)
	require.Len(t, all.Data, 6)
	assert.Equal(t, "K00005.01", all.Data[0].Name, "default sort is period ascending")

	rec = f.do(t, "GET", "/api/explore?disposition=CANDIDATE&per_page=2&sort=koi_model_snr&dir=desc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[catalog.Result](t, rec)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "K00004.01", page.Data[0].Name)
	assert.Equal(t, "K00006.01", page.Data[1].Name)

	rec = f.do(t, "GET", "/api/explore?search=k00003", "")
	assert.Equal(t, 1, decode[catalog.Result](t, rec).Total)

	missing := newFixture(t, "../../testdata/missing.csv", modelPath, "")
	assert.Equal(t, http.StatusNotFound, missing.do(t, "GET", "/api/explore", "").Code)
}

func TestExploreClassify(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "secret")

	rec := f.do(t, "POST", "/api/explore/classify", validBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "POST", "/api/explore/classify", validBody, "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ClassifyResponse](t, rec)
	assert.Equal(t, triage.PredictionConfirmed, resp.Label)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-4)
	assert.Greater(t, resp.Radius, 0.0)
	assert.GreaterOrEqual(t, resp.LatencyMS, 0.0)

	rec = f.do(t, "POST", "/api/explore/classify", `{"koi_period": 3}`, "X-API-Key", "secret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, sampleCSV, modelPath, "")
	rec := f.do(t, "OPTIONS", "/api/triage", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBatchCacheEviction(t *testing.T) {
	c := NewBatchCache(2)
	c.Put("a", &discovery.Batch{}, "1")
	c.Put("b", &discovery.Batch{}, "2")
	if _, _, ok := c.Get("a"); !ok {
		t.Fatal("expected a cached")
	}
	c.Put("c", &discovery.Batch{}, "3")

	if _, _, ok := c.Get("b"); ok {
		t.Error("expected b evicted as least recently used")
	}
	if _, runID, ok := c.Get("a"); !ok || runID != "1" {
		t.Errorf("Get(a) = %q, %v", runID, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after Purge = %d", c.Len())
	}
}
