// Package server exposes the archive over a JSON HTTP API.
//
// Routes are read-only: semantic search, chat and folder listings, and
// message history. Writes happen through the ingest and backfill pipelines,
// never through this API.
package server
