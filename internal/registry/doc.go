// Package registry loads job definitions from a directory of declarative
// documents (.json, .yaml, .cue) and normalizes them into typed, immutable
// records.
//
// Definitions are indexed under both their file stem and their declared
// display name, normalized case/whitespace/underscore-insensitively. Open
// string-keyed dispatch in the documents (resolution conditions, context
// builders, transforms, parsers) is compiled into closed tagged variants at
// load time: an unknown kind is a load error, never a silent no-op.
//
// Declaration order is significant for methods, resolution rules, and
// context builders, so documents are decoded through an order-preserving
// representation rather than Go maps.
package registry
