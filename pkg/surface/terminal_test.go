package surface_test

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/exotriage/exotriage/pkg/candidate"
	"github.com/exotriage/exotriage/pkg/surface"
	"github.com/exotriage/exotriage/pkg/triage"
	"github.com/exotriage/exotriage/pkg/triagequery"
)

func samplePage() *surface.Page {
	engine := triage.DefaultEngine()
	hz := engine.Enrich(0, candidate.Parameters{
		ID: "K00701.03", Period: 122.4, Impact: 0.1, Duration: 5.2, Depth: 900, SNR: 40,
		StellarTeff: 4900, StellarLogG: 4.6, StellarRad: 0.7, StellarMass: 0.8,
		Insolation: candidate.Float(1.1), Multiplicity: candidate.Int(3), HasUncertainty: true,
	}, triage.NewInference(0.93, 0.07, 1.6, 0.2))
	giant := engine.Enrich(1, candidate.Parameters{
		ID: "K00042.01", Period: 3.1, Impact: 0.9, Duration: 2.0, Depth: 12000, SNR: 300,
		StellarTeff: 6200, StellarLogG: 3.1, StellarRad: 5.5, StellarMass: 1.4,
		HasUncertainty: false,
	}, triage.NewInference(0.35, 0.65, 18, 2.5))

	return &surface.Page{
		Source:          "koi.csv",
		RunID:           "run-1",
		ModelVersion:    "abc123",
		TotalCandidates: 3,
		Classified:      2,
		Result:          triagequery.Apply([]triage.Candidate{hz, giant}, triagequery.DefaultQuery()),
	}
}

func TestTerminalRenderer_BasicOutput(t *testing.T) {
	// Set NO_COLOR to avoid ANSI codes in test comparison
	t.Setenv("NO_COLOR", "1")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	if err := r.Render(&buf, samplePage()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"2 of 3 candidates classified (model abc123)",
		"koi.csv  run run-1",
		"Matched 2 candidates, page 1 of 1",
		"habitable zone 1",
		"Priority tiers:",
		"Roles:",
		"K00701.03",
		"K00042.01",
		"HZ",
		"[HIGH]",
		triage.RoleStellar,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}

	if strings.Contains(output, "\033[") {
		t.Error("expected no ANSI codes with NO_COLOR set")
	}
	if strings.Contains(output, "Deliverable:") {
		t.Error("expected role details only in verbose mode")
	}

	// higher score first
	if strings.Index(output, "K00701.03") > strings.Index(output, "K00042.01") {
		t.Error("expected candidates in score order")
	}
}

func TestTerminalRenderer_Verbose(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := &surface.TerminalRenderer{Verbose: true}
	var buf bytes.Buffer
	if err := r.Render(&buf, samplePage()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Deliverable:") {
		t.Error("expected deliverables in verbose output")
	}
	if !strings.Contains(buf.String(), "Stellar characterization needed") {
		t.Error("expected role reasons in verbose output")
	}
}

func TestTerminalRenderer_Colors(t *testing.T) {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		t.Skip("NO_COLOR set in environment")
	}
	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer
	if err := r.Render(&buf, samplePage()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[31m") {
		t.Error("expected red for HIGH tier")
	}
}

func TestTerminalRenderer_EmptyPage(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	page := &surface.Page{Result: triagequery.Apply(nil, triagequery.DefaultQuery())}
	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{}).Render(&buf, page); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "No candidates on this page.") {
		t.Errorf("expected empty-page message, got:\n%s", output)
	}
	if strings.Contains(output, "Roles:") {
		t.Error("expected no role section for an empty page")
	}
}

func TestTerminalRenderer_Candidate(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	c := triage.DefaultEngine().Enrich(4, candidate.Parameters{
		Period: 10, Impact: 0.1, Duration: 3, Depth: 100, SNR: 50,
		StellarTeff: 5700, StellarLogG: 4.4, StellarRad: 1, StellarMass: 1,
		HasUncertainty: true,
	}, triage.NewInference(0.99, 0.01, 9, 0.1))

	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{}).RenderCandidate(&buf, &c); err != nil {
		t.Fatalf("RenderCandidate() error: %v", err)
	}
	if !strings.Contains(buf.String(), "#5") {
		t.Errorf("expected positional name for unnamed candidate, got:\n%s", buf.String())
	}
}

func TestJSONRenderer(t *testing.T) {
	r, ok := surface.ForFormat("json", false)
	if !ok {
		t.Fatal("expected json renderer")
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, samplePage()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"total_candidates", "classified", "total_filtered", "pages", "data", "summary"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in JSON output", key)
		}
	}
}

func TestForFormat(t *testing.T) {
	if _, ok := surface.ForFormat("text", true); !ok {
		t.Error("expected text renderer")
	}
	if _, ok := surface.ForFormat("", false); !ok {
		t.Error("expected default renderer")
	}
	if _, ok := surface.ForFormat("xml", false); ok {
		t.Error("expected no renderer for xml")
	}
}
