package store

import (
	"context"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

// EdgeFilter selects edges from the ledger. Zero-value fields are
// ignored. RunID matches edges touching the id as either endpoint.
type EdgeFilter struct {
	From  string
	To    string
	RunID string
}

// Store is the durable provenance store contract.
//
// Put is idempotent for content-addressed assets: writing the same asset
// twice is a no-op. Append never edits or removes existing edges; Query
// returns edges in ledger (append) order.
type Store interface {
	// Put stores an asset and returns its ID.
	Put(ctx context.Context, a asset.Asset) (string, error)

	// Get retrieves an asset by ID. The boolean reports presence.
	Get(ctx context.Context, id string) (asset.Asset, bool, error)

	// GetMany retrieves assets in the order of ids, skipping absentees.
	GetMany(ctx context.Context, ids []string) ([]asset.Asset, error)

	// Append appends edges to the ledger and returns how many were written.
	Append(ctx context.Context, edges []asset.Edge) (int, error)

	// Query returns edges matching the filter in ledger order.
	Query(ctx context.Context, f EdgeFilter) ([]asset.Edge, error)

	// Closure returns the transitive lineage of a node in ledger order.
	Closure(ctx context.Context, q ClosureQuery) ([]asset.Edge, error)

	// PutRun inserts or updates a run record.
	PutRun(ctx context.Context, r asset.Run) error

	// GetRun retrieves a run by ID. The boolean reports presence.
	GetRun(ctx context.Context, id string) (asset.Run, bool, error)

	// Close releases backend resources.
	Close() error
}

// matches reports whether an edge satisfies a filter.
func (f EdgeFilter) matches(e asset.Edge) bool {
	if f.From != "" && e.From != f.From {
		return false
	}
	if f.To != "" && e.To != f.To {
		return false
	}
	if f.RunID != "" && e.From != f.RunID && e.To != f.RunID {
		return false
	}
	return true
}
