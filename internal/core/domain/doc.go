// Package domain defines the core business entities for the math tutor.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source text identified by a stable source ID
//   - Chunk: A bounded overlapping slice of a document, the unit of retrieval
//   - IndexEntry: A chunk plus its embedding, as stored in the vector index
//   - Answer: The tagged outcome of one query (grounded answer or no-context)
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
