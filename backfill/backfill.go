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

package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/tgvault/tgvault/ai"
	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
)

const (
	// DefaultBatchSize is the default number of messages per batch.
	DefaultBatchSize = 100

	// DefaultWriteConcurrency bounds the pool dispatching per-row
	// embedding writes within a batch.
	DefaultWriteConcurrency = 8
)

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of messages to process in each batch.
	BatchSize int

	// ChatID restricts the run to a single chat when non-nil.
	ChatID *int64

	// ReportInterval is how often to report progress (number of messages).
	ReportInterval int

	// WriteConcurrency is the worker pool size for per-row write-back.
	WriteConcurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        DefaultBatchSize,
		ReportInterval:   100,
		WriteConcurrency: DefaultWriteConcurrency,
	}
}

// Stats accounts for a backfill run. Processed always equals
// Succeeded + Failed + Skipped, and advances by exactly the fetched batch
// length each iteration.
type Stats struct {
	// Total is the number of eligible messages counted up front.
	Total int

	// Processed is the number of fetched messages the run has accounted for.
	Processed int

	// Succeeded is the number of messages whose embedding was written.
	Succeeded int

	// Failed is the number of messages in batches that hit a provider or
	// write error.
	Failed int

	// Skipped is the number of messages with empty or whitespace-only
	// content, which are never sent to the provider.
	Skipped int
}

// Backfiller orchestrates the embedding backfill for messages missing a
// vector. Dependencies are passed in explicitly; the caller owns their
// lifecycle.
type Backfiller struct {
	store    storage.MessageRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	pool     *ants.Pool
	logger   *slog.Logger
}

// NewBackfiller creates a new backfiller.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(store storage.MessageRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Backfiller, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.ReportInterval <= 0 {
		config.ReportInterval = 100
	}
	if config.WriteConcurrency <= 0 {
		config.WriteConcurrency = DefaultWriteConcurrency
	}
	if progress == nil {
		progress = io.Discard
	}

	pool, err := ants.NewPool(config.WriteConcurrency)
	if err != nil {
		return nil, err
	}

	return &Backfiller{
		store:    store,
		embedder: embedder,
		config:   config,
		progress: progress,
		pool:     pool,
		logger:   slog.Default().With("component", "backfill"),
	}, nil
}

// Release releases the write-back worker pool.
// The backfiller should not be used after calling Release.
func (b *Backfiller) Release() {
	b.pool.Release()
}

// Run executes the backfill until no eligible messages remain or an
// unrecoverable error occurs. Per-batch provider and write errors are
// recoverable: they are logged, the batch is counted processed and failed,
// and the loop continues.
func (b *Backfiller) Run(ctx context.Context) (*Stats, error) {
	filter := storage.BackfillFilter{ChatID: b.config.ChatID}

	total, err := b.store.CountMissingEmbeddings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count eligible messages: %w", err)
	}

	stats := &Stats{Total: total}
	if total == 0 {
		b.logger.Info("no messages need embeddings")
		fmt.Fprintf(b.progress, "No messages need embeddings (0 eligible)\n")
		return stats, nil
	}

	b.logger.Info("starting embedding backfill", "eligible", total, "batchSize", b.config.BatchSize)
	fmt.Fprintf(b.progress, "Backfilling embeddings for %d messages (batch size: %d)\n",
		total, b.config.BatchSize)

	tracker := NewProgressTracker(b.progress, total, b.config.ReportInterval)
	tracker.Start()

	for stats.Processed < total {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		batch, err := b.store.MissingEmbeddings(ctx, filter, b.config.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to fetch batch: %w", err)
		}
		if len(batch) == 0 {
			// Defensive: another run may have drained the remainder.
			break
		}

		// Advance the keyset cursor past everything fetched this
		// iteration so a failed batch is not refetched within this run.
		last := batch[len(batch)-1]
		filter.After = &storage.MessageKey{ChatID: last.ChatID, ID: last.ID}

		b.processBatch(ctx, batch, stats)
		tracker.Update(stats.Processed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	b.logger.Info("embedding backfill complete",
		"processed", stats.Processed, "succeeded", stats.Succeeded,
		"failed", stats.Failed, "skipped", stats.Skipped)
	fmt.Fprintf(b.progress, "Backfill complete. Processed %d messages in %v (%d succeeded, %d failed, %d skipped)\n",
		stats.Processed, elapsed.Round(time.Second), stats.Succeeded, stats.Failed, stats.Skipped)

	return stats, nil
}

// processBatch embeds and writes back one batch, updating stats. Progress
// always advances by the full batch length, so the loop stays bounded even
// when the provider is down.
func (b *Backfiller) processBatch(ctx context.Context, batch []*core.Message, stats *Stats) {
	valid := make([]*core.Message, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, msg := range batch {
		if !msg.HasText() {
			continue
		}
		valid = append(valid, msg)
		texts = append(texts, strings.TrimSpace(msg.Text))
	}
	skipped := len(batch) - len(valid)

	stats.Processed += len(batch)
	stats.Skipped += skipped

	if len(valid) == 0 {
		return
	}

	vectors, err := b.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		b.logger.Error("embedding provider failed, batch counted as failed",
			"batch", len(valid), "err", err)
		stats.Failed += len(valid)
		return
	}
	if len(vectors) != len(valid) {
		b.logger.Error("embedding count mismatch, batch counted as failed",
			"expected", len(valid), "got", len(vectors))
		stats.Failed += len(valid)
		return
	}

	if failed := b.writeBatch(ctx, valid, vectors); failed > 0 {
		stats.Failed += len(valid)
		return
	}

	stats.Succeeded += len(valid)
}

// writeBatch dispatches the N independent per-row updates concurrently and
// awaits them as a group. Returns the number of failed writes.
func (b *Backfiller) writeBatch(ctx context.Context, msgs []*core.Message, vectors [][]float32) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for i := range msgs {
		msg := msgs[i]
		vector := vectors[i]

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			if err := b.store.UpdateEmbedding(ctx, msg.ChatID, msg.ID, vector); err != nil {
				b.logger.Error("failed to write embedding",
					"chatID", msg.ChatID, "msgID", msg.ID, "err", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		})
		if err != nil {
			// Pool rejected the task (released or overloaded).
			wg.Done()
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}

	wg.Wait()
	return failed
}
