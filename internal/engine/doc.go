// Package engine implements the configuration-driven execution pipeline.
//
// The engine turns a (job name, input assets, parameters) tuple into a
// terminal Run plus content-addressed Results in the provenance ledger.
//
// ARCHITECTURE:
//
// Synchronous single-run pipeline:
// A caller submits one request and blocks until the Run reaches a
// terminal state. There is no internal queue and no concurrency between
// the pipeline stages; the only suspension point is the subprocess
// boundary, bounded by the effective timeout.
//
// Pipeline stages, in order:
//  1. Registry lookup - find the job definition by normalized name
//  2. Method resolution - explicit param, ordered rules, keyword table,
//     first declared method (resolver.go)
//  3. Context construction - fixed values, params, aliases, builders,
//     layered so earlier layers win (context.go)
//  4. Template rendering - safe substitution plus array-index
//     post-processing, written into a per-run scratch dir (render.go)
//  5. Dispatch - local, docker or hpc backend runs the tool (dispatch.go)
//  6. Output parsing - glob discovery, declared parsers, default-results
//     fallback (parse.go)
//  7. Materialization - Results asset, auxiliary assets, log artifact,
//     lineage edges in fixed order (materialize.go)
//
// CRITICAL PATTERNS:
//
// Provenance edge order within a run is fixed: input edges first, then
// the PRODUCES edge, then the LOGS edge. Trace consumers rely on this
// order for readable output.
//
// Results assets are content addressed. Two runs over identical inputs
// and parameters yield the same Results ID even though their Run IDs
// differ. Nothing time-dependent may enter the Results payload.
//
// A failed run never links a partial Results asset: assets and edges are
// persisted only after the whole materialization step succeeds.
package engine
