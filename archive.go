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

// Package tgvault archives Telegram chats into Postgres and makes them
// semantically searchable. The Archive type wires the storage backend and
// the embedding provider together and hands out the pipelines built on
// them.
package tgvault

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/tgvault/tgvault/ai"
	"github.com/tgvault/tgvault/ai/openai"
	"github.com/tgvault/tgvault/backfill"
	"github.com/tgvault/tgvault/ingest"
	"github.com/tgvault/tgvault/search"
	"github.com/tgvault/tgvault/server"
	"github.com/tgvault/tgvault/storage"
	"github.com/tgvault/tgvault/storage/postgres"
)

// Archive bundles the storage backend and embedding provider.
type Archive struct {
	store    *postgres.Store
	embedder ai.Embedder
	logger   *slog.Logger
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*archiveOptions)

type archiveOptions struct {
	aiConfig      *ai.Config
	retryAttempts int
	retryDelay    time.Duration
}

// WithAIConfig sets the embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) ArchiveOption {
	return func(o *archiveOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithEmbedderRetry sets the retry policy wrapped around the embedding
// provider. maxAttempts of 1 disables retries.
func WithEmbedderRetry(maxAttempts int, baseDelay time.Duration) ArchiveOption {
	return func(o *archiveOptions) {
		o.retryAttempts = maxAttempts
		o.retryDelay = baseDelay
	}
}

// Open connects to the database and constructs the embedding provider.
func Open(ctx context.Context, databaseURL string, opts ...ArchiveOption) (*Archive, error) {
	options := &archiveOptions{
		aiConfig:      ai.DefaultConfig(),
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := postgres.Open(ctx, databaseURL,
		postgres.WithDimensions(options.aiConfig.Dimensions))
	if err != nil {
		return nil, err
	}

	embedder, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		store.Close()
		return nil, err
	}

	if options.retryAttempts > 1 {
		embedder, err = ai.NewRetryEmbedder(embedder, options.retryAttempts, options.retryDelay)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return &Archive{
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
	}, nil
}

// Close releases the database pool.
func (a *Archive) Close() error {
	a.store.Close()
	return nil
}

// Store exposes the underlying storage.
func (a *Archive) Store() storage.Store {
	return a.store
}

// Embedder exposes the configured embedding provider.
func (a *Archive) Embedder() ai.Embedder {
	return a.embedder
}

// NewBackfiller builds the embedding backfill pipeline.
func (a *Archive) NewBackfiller(cfg *backfill.Config, progress io.Writer) (*backfill.Backfiller, error) {
	return backfill.NewBackfiller(a.store, a.embedder, cfg, progress)
}

// NewSearcher builds the semantic searcher.
func (a *Archive) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(a.store, a.embedder, opts...)
}

// NewIngestPipeline builds the ingestion pipeline with inline embedding
// enabled.
func (a *Archive) NewIngestPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	opts = append([]ingest.Option{ingest.WithEmbedder(a.embedder)}, opts...)
	return ingest.NewPipeline(a.store, opts...)
}

// NewServer builds the read-only API server.
func (a *Archive) NewServer(opts ...server.Option) (*server.Server, error) {
	searcher, err := a.NewSearcher()
	if err != nil {
		return nil, err
	}
	return server.NewServer(a.store, searcher, opts...)
}
