package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden wire form of one scenario execution.
//
// Content-addressed asset IDs are redacted to positional placeholders
// before comparison: hashes shift whenever payload canonicalization
// changes, and the golden files pin the trace structure, not the
// digests. Run IDs come from the deterministic sequence and are kept.
type TraceSnapshot struct {
	Scenario string            `json:"scenario"`
	Run      SnapshotRun       `json:"run"`
	Method   string            `json:"method,omitempty"`
	Results  map[string]any    `json:"results,omitempty"`
	Units    map[string]string `json:"units,omitempty"`
	Edges    []SnapshotEdge    `json:"edges"`
}

// SnapshotRun is the run record as persisted in the golden file.
type SnapshotRun struct {
	ID            string `json:"id"`
	Job           string `json:"job"`
	Status        string `json:"status"`
	RunnerVersion string `json:"runner_version"`
	StartedAt     string `json:"started_at"`
	EndedAt       string `json:"ended_at"`
}

// SnapshotEdge is one lineage fact with redacted asset endpoints.
type SnapshotEdge struct {
	From string `json:"from"`
	Rel  string `json:"rel"`
	To   string `json:"to"`
	T    string `json:"t"`
}

// Snapshot builds the redacted golden form of a result.
func Snapshot(scenarioName string, r *Result) TraceSnapshot {
	snap := TraceSnapshot{
		Scenario: scenarioName,
		Method:   r.Method,
		Results:  r.Results.Payload,
		Units:    r.Results.Units,
		Edges:    []SnapshotEdge{},
	}
	if r.Run != nil {
		snap.Run = SnapshotRun{
			ID:            r.Run.ID,
			Job:           r.Run.Kind,
			Status:        string(r.Run.Status),
			RunnerVersion: r.Run.RunnerVersion,
			StartedAt:     r.Run.StartedAt,
			EndedAt:       r.Run.EndedAt,
		}
	}

	redacted := map[string]string{}
	redact := func(id string) string {
		if r.Run != nil && id == r.Run.ID {
			return id
		}
		if placeholder, ok := redacted[id]; ok {
			return placeholder
		}
		placeholder := fmt.Sprintf("asset:%d", len(redacted)+1)
		redacted[id] = placeholder
		return placeholder
	}
	for _, e := range r.Edges {
		snap.Edges = append(snap.Edges, SnapshotEdge{
			From: redact(e.From),
			Rel:  string(e.Rel),
			To:   redact(e.To),
			T:    e.T,
		})
	}
	return snap
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. Regenerate with -update.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	snap := Snapshot(scenario.Name, result)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("scenario %s: encode snapshot: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"))
	g.Assert(t, scenario.Name, data)
	return result
}
