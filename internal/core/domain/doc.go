// Package domain defines the core business entities for lexroute.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source / Document: a file discovered under the document root
//   - Chunk: a bounded span of document text stored with its embedding
//   - SubQuery: one intent-labelled fragment of a user query
//   - ResponseEnvelope: the ordered per-sub-query outcomes of one query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
