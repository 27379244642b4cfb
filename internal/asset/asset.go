package asset

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the schema family of an asset payload.
type Kind string

const (
	KindSystem   Kind = "System"   // atomic structure: atoms, lattice, pbc
	KindMethod   Kind = "Method"   // computational method configuration
	KindParams   Kind = "Params"   // free-form run parameters
	KindResults  Kind = "Results"  // free-form parsed results
	KindArtifact Kind = "Artifact" // logs and out-of-band files
)

// ValidKinds defines the closed set of asset kinds.
var ValidKinds = map[Kind]bool{
	KindSystem:   true,
	KindMethod:   true,
	KindParams:   true,
	KindResults:  true,
	KindArtifact: true,
}

// Asset is an immutable, typed unit of data flowing through the system.
// Assets are created once and never mutated; a changed payload is a new
// asset with a new content-addressed ID.
//
// The wire form uses the key "type" for Kind; Units, URI and Hash are
// omitted when absent so round-tripping preserves optionality.
type Asset struct {
	Kind    Kind              `json:"type"`
	ID      string            `json:"id"`
	Payload map[string]any    `json:"payload"`
	Units   map[string]string `json:"units,omitempty"`
	URI     string            `json:"uri,omitempty"`
	Hash    string            `json:"hash,omitempty"`
}

// New creates an asset with a content-addressed ID derived from kind and
// payload. Returns an error if the payload cannot be canonically marshaled.
func New(kind Kind, payload map[string]any) (Asset, error) {
	id, err := ID(kind, payload)
	if err != nil {
		return Asset{}, fmt.Errorf("new %s asset: %w", kind, err)
	}
	return Asset{Kind: kind, ID: id, Payload: payload}, nil
}

// ToWire serializes the asset to its persisted JSON form.
func (a Asset) ToWire() ([]byte, error) {
	return json.Marshal(a)
}

// FromWire deserializes an asset from its persisted JSON form.
func FromWire(data []byte) (Asset, error) {
	var a Asset
	if err := json.Unmarshal(data, &a); err != nil {
		return Asset{}, fmt.Errorf("decode asset: %w", err)
	}
	return a, nil
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusQueued  RunStatus = "queued"
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusError   RunStatus = "error"
)

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Run is a mutable record of one execution attempt. Its ID is globally
// unique and independent of content; retries are a caller concern and are
// not modeled here. A run transitions queued -> running -> {done|error}
// exactly once.
type Run struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Status        RunStatus `json:"status"`
	RunnerVersion string    `json:"runner_version,omitempty"`
	StartedAt     string    `json:"started_at,omitempty"`
	EndedAt       string    `json:"ended_at,omitempty"`
}

// NewRun creates a queued run for the named job.
func NewRun(kind string) *Run {
	return &Run{ID: NewRunID(), Kind: kind, Status: StatusQueued}
}

// Start marks the run running. Only valid from queued.
func (r *Run) Start(now time.Time) error {
	if r.Status != StatusQueued {
		return fmt.Errorf("run %s: cannot start from %q", r.ID, r.Status)
	}
	r.Status = StatusRunning
	r.StartedAt = Timestamp(now)
	return nil
}

// Finish marks the run terminal. Only valid from running.
func (r *Run) Finish(status RunStatus, now time.Time) error {
	if r.Status != StatusRunning {
		return fmt.Errorf("run %s: cannot finish from %q", r.ID, r.Status)
	}
	if !status.Terminal() {
		return fmt.Errorf("run %s: %q is not a terminal status", r.ID, status)
	}
	r.Status = status
	r.EndedAt = Timestamp(now)
	return nil
}

// Relation classifies a lineage edge.
type Relation string

const (
	RelUses       Relation = "USES"
	RelProduces   Relation = "PRODUCES"
	RelDerives    Relation = "DERIVES"
	RelConfigures Relation = "CONFIGURES"
	RelLogs       Relation = "LOGS"
)

// ValidRelations defines the closed set of edge relations.
var ValidRelations = map[Relation]bool{
	RelUses:       true,
	RelProduces:   true,
	RelDerives:    true,
	RelConfigures: true,
	RelLogs:       true,
}

// Edge is an immutable provenance fact linking two identifiers (asset or
// run IDs). Edges are append-only: the ledger never edits or deletes one.
//
// Wire keys are "from", "to", "rel", "t"; T is an RFC 3339 UTC timestamp.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Rel  Relation `json:"rel"`
	T    string   `json:"t"`
}

// NewEdge creates an edge timestamped at now.
func NewEdge(from, to string, rel Relation, now time.Time) Edge {
	return Edge{From: from, To: to, Rel: rel, T: Timestamp(now)}
}

// Timestamp formats a time in the ledger's wire format (RFC 3339, UTC).
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
