// Package postgres implements the storage repositories on Postgres with
// the pgvector extension.
//
// Embeddings live in a fixed-dimension vector column; similarity queries
// use the cosine distance operator (<=>) with an ivfflat index. Message
// inserts rely on ON CONFLICT (chat_id, id) DO NOTHING, and chat, folder,
// and sync-state writes on ON CONFLICT ... DO UPDATE, so every pipeline
// can be re-run without duplicate-key errors.
package postgres
