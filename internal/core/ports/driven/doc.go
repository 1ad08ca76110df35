// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them:
//
//   - Embedder: Converts text into fixed-dimension vectors (remote model)
//   - Generator: Produces an answer from a grounded prompt (remote model)
//   - VectorIndex: Persists index entries and serves similarity queries
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
