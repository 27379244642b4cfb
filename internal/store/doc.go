// Package store persists the provenance graph: content-addressed assets,
// run records, and the append-only edge ledger.
//
// Two backends implement the same Store contract. The file backend writes
// the ledger's JSON wire form ({"assets": ..., "edges": ..., "runs": ...})
// with full-file-replace semantics. The SQLite backend keeps the same data
// in an append-only table set with WAL journaling; replaying its rows from
// empty reconstructs the exact graph.
//
// All mutations are durable before the call returns. The store is the only
// shared mutable resource in the engine; writers are serialized.
package store
