// Package asset defines the immutable data model of the provenance graph:
// Assets (content-addressed units of data), Runs (mutable execution
// attempts), and Edges (append-only lineage facts).
//
// Asset identity is derived from content: two assets of the same kind with
// byte-identical canonical payloads share an ID. Canonical serialization is
// the ONLY serialization used for identity computation; see MarshalCanonical.
package asset
