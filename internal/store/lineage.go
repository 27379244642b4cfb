package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

// Direction selects which way a closure walk follows edges.
type Direction string

const (
	// Ancestors walks edges backward: everything that fed into the root.
	Ancestors Direction = "ancestors"

	// Descendants walks edges forward: everything the root fed into.
	Descendants Direction = "descendants"
)

// ClosureQuery describes a transitive lineage walk from one node of the
// provenance graph. The root may be an asset ID or a run ID; both are
// edge endpoints.
//
// MaxDepth zero means unbounded. An empty Rels slice admits every
// relation.
type ClosureQuery struct {
	Root      string
	Direction Direction
	Rels      []asset.Relation
	MaxDepth  int
}

// Validate rejects queries that no backend can answer.
func (q ClosureQuery) Validate() error {
	if q.Root == "" {
		return fmt.Errorf("closure query: empty root")
	}
	if q.Direction != Ancestors && q.Direction != Descendants {
		return fmt.Errorf("closure query: unknown direction %q", q.Direction)
	}
	if q.MaxDepth < 0 {
		return fmt.Errorf("closure query: negative max depth %d", q.MaxDepth)
	}
	for _, rel := range q.Rels {
		if !asset.ValidRelations[rel] {
			return fmt.Errorf("closure query: unknown relation %q", rel)
		}
	}
	return nil
}

// relSet returns the admitted relations, or nil for "all".
func (q ClosureQuery) relSet() map[asset.Relation]bool {
	if len(q.Rels) == 0 {
		return nil
	}
	set := make(map[asset.Relation]bool, len(q.Rels))
	for _, rel := range q.Rels {
		set[rel] = true
	}
	return set
}

// closureEdges walks a snapshot of the ledger breadth-first and returns
// the traversed edges in ledger order. Both backends must agree on
// which edges a query selects; the SQLite backend reproduces this walk
// with a recursive CTE.
func closureEdges(edges []asset.Edge, q ClosureQuery) []asset.Edge {
	allow := q.relSet()
	reached := map[string]bool{q.Root: true}
	included := make([]bool, len(edges))

	frontier := map[string]bool{q.Root: true}
	for depth := 0; len(frontier) > 0; depth++ {
		if q.MaxDepth > 0 && depth >= q.MaxDepth {
			break
		}
		next := map[string]bool{}
		for i, e := range edges {
			if allow != nil && !allow[e.Rel] {
				continue
			}
			at, out := e.To, e.From
			if q.Direction == Descendants {
				at, out = e.From, e.To
			}
			if !frontier[at] {
				continue
			}
			included[i] = true
			if !reached[out] {
				reached[out] = true
				next[out] = true
			}
		}
		frontier = next
	}

	out := []asset.Edge{}
	for i, e := range edges {
		if included[i] {
			out = append(out, e)
		}
	}
	return out
}

// Closure returns the transitive lineage of the root, walked in memory.
func (s *FileStore) Closure(ctx context.Context, q ClosureQuery) ([]asset.Edge, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return closureEdges(s.edges, q), nil
}

// Closure returns the transitive lineage of the root via a recursive
// CTE. Values are always parameterized, and the result carries an
// explicit ORDER BY so repeated queries return identical output.
func (s *SQLiteStore) Closure(ctx context.Context, q ClosureQuery) ([]asset.Edge, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// Ancestors follow to_id back to from_id; descendants the reverse.
	step, link := "from_id", "to_id"
	if q.Direction == Descendants {
		step, link = "to_id", "from_id"
	}

	relSQL, relArgs := relPredicate(q.Rels)

	// The UNION dedupes (id, depth) rows, not ids, so on a cyclic graph
	// an unbounded walk would grow depth forever. A shortest path never
	// repeats an edge, so its depth cannot exceed the edge count; that
	// count caps the recursion when the query itself sets no bound.
	limit := q.MaxDepth
	if limit == 0 {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n); err != nil {
			return nil, fmt.Errorf("closure of %s: %w", q.Root, err)
		}
		limit = n + 1
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE walk(id, depth) AS (
			SELECT ?, 0
			UNION
			SELECT e.%s, w.depth + 1
			FROM edges e JOIN walk w ON e.%s = w.id
			WHERE w.depth < ?%s
		)
		SELECT e.from_id, e.to_id, e.rel, e.t
		FROM edges e
		JOIN (SELECT id, MIN(depth) AS depth FROM walk GROUP BY id) w
			ON e.%s = w.id
		WHERE w.depth < ?%s
		ORDER BY e.seq ASC
	`, step, link, relSQL, link, relSQL)

	args := []any{q.Root, limit}
	args = append(args, relArgs...)
	args = append(args, limit)
	args = append(args, relArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("closure of %s: %w", q.Root, err)
	}
	defer rows.Close()

	edges := []asset.Edge{}
	for rows.Next() {
		var e asset.Edge
		var rel string
		if err := rows.Scan(&e.From, &e.To, &rel, &e.T); err != nil {
			return nil, fmt.Errorf("scan closure edge: %w", err)
		}
		e.Rel = asset.Relation(rel)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closure edges: %w", err)
	}
	return edges, nil
}

// relPredicate builds an "AND e.rel IN (...)" fragment with one
// placeholder per relation. Empty rels yield no predicate.
func relPredicate(rels []asset.Relation) (string, []any) {
	if len(rels) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(rels))
	args := make([]any, len(rels))
	for i, rel := range rels {
		placeholders[i] = "?"
		args[i] = string(rel)
	}
	return " AND e.rel IN (" + strings.Join(placeholders, ", ") + ")", args
}
