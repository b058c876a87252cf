// Copyright 2025 The tgvault Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/tgvault/tgvault/storage"
)

const (
	// DefaultDimensions matches OpenAI text-embedding-3-small.
	DefaultDimensions = 1536
)

// Store is the Postgres + pgvector storage backend.
type Store struct {
	pool   *pgxpool.Pool
	dims   int
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithDimensions sets the embedding vector dimension declared in the
// schema. Default is DefaultDimensions.
func WithDimensions(dims int) Option {
	return func(s *Store) {
		if dims > 0 {
			s.dims = dims
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to Postgres, registers pgvector types on every pooled
// connection, and bootstraps the schema.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := &Store{
		pool:   pool,
		dims:   DefaultDimensions,
		logger: slog.Default().With("component", "postgres"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// migrate bootstraps the schema. Every statement is idempotent so startup
// against an existing database is a no-op.
func (s *Store) migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS folders (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	emoji TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS chats (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	last_message TEXT NOT NULL DEFAULT '',
	last_at TIMESTAMPTZ,
	synced_at TIMESTAMPTZ,
	message_count INTEGER NOT NULL DEFAULT 0,
	folder_id BIGINT REFERENCES folders(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id BIGINT NOT NULL,
	chat_id BIGINT NOT NULL,
	type TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	embedding vector(%d),
	reply_to_id BIGINT,
	forward_from_chat_id BIGINT,
	forward_from_msg_id BIGINT,
	views INTEGER NOT NULL DEFAULT 0,
	forwards INTEGER NOT NULL DEFAULT 0,
	date TIMESTAMPTZ NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chat_id, id)
);

CREATE INDEX IF NOT EXISTS idx_messages_null_embedding
	ON messages (chat_id, id) WHERE embedding IS NULL;
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages (date);
CREATE INDEX IF NOT EXISTS idx_messages_embedding
	ON messages USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS sync_state (
	chat_id BIGINT PRIMARY KEY,
	last_message_id BIGINT NOT NULL,
	synced_at TIMESTAMPTZ NOT NULL
);
`, s.dims)

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Dimensions returns the embedding dimension declared in the schema.
func (s *Store) Dimensions() int {
	return s.dims
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
