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

package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tgvault/tgvault/ai"
	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
)

// Searcher provides semantic search over archived messages.
type Searcher struct {
	messages storage.MessageRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(messages storage.MessageRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		messages: messages,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search embeds the query and returns the most similar messages, ranked by
// descending similarity. Messages without an embedding never appear in the
// results. A zero filter limit falls back to storage.DefaultSearchLimit.
func (s *Searcher) Search(ctx context.Context, query string, filter storage.SearchFilter) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	results, err := s.messages.SearchSimilar(ctx, embedding, filter)
	if err != nil {
		s.logger.Error("error querying for similar messages", "err", err)
		return nil, err
	}

	s.logger.Debug("search complete", "query", query, "hits", len(results))
	return results, nil
}
