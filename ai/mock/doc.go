// Package mock provides test doubles for the ai package interfaces.
//
// MockEmbedder generates deterministic vectors from text hashes so tests
// get stable, repeatable embeddings without an external service. Behavior
// can be overridden per-test via the exported function fields.
package mock
