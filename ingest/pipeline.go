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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/tgvault/tgvault/ai"
	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
	"github.com/tgvault/tgvault/telegram"
)

// Store is the storage surface the pipeline writes to.
type Store interface {
	storage.MessageRepository
	storage.ChatRepository
	storage.SyncStateRepository
}

// UpdateSource supplies Telegram updates, typically a telegram.Client.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
}

// Pipeline archives incoming Telegram messages.
type Pipeline struct {
	store         Store
	embedder      ai.Embedder
	embeddingPool *ants.Pool
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithEmbedder enables inline embedding of newly archived text.
// Without it, embeddings are left for the backfill pipeline.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(p *Pipeline) error {
		p.embedder = embedder
		return nil
	}
}

// WithPoolSize sets the worker pool size for inline embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store Store, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:         store,
		embeddingPool: pool,
		logger:        slog.Default().With("component", "ingest"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Archive stores one message: chat metadata is upserted, the message is
// inserted with insert-or-skip semantics, and the chat's sync state
// advances. A duplicate message is a no-op beyond the chat upsert.
func (p *Pipeline) Archive(ctx context.Context, m *telegram.Message) error {
	msg := telegram.ToMessage(m)
	if err := core.ValidateMessage(msg); err != nil {
		return fmt.Errorf("invalid message %d in chat %d: %w", m.MessageID, m.Chat.ID, err)
	}

	inserted, err := p.store.InsertMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err := p.updateChat(ctx, &m.Chat, msg, inserted > 0); err != nil {
		return err
	}
	if err := p.advanceSyncState(ctx, msg.ChatID, msg.ID); err != nil {
		return err
	}

	if inserted > 0 && p.embedder != nil && msg.HasText() {
		p.submitEmbedding(msg)
	}

	return nil
}

// updateChat refreshes the chat's metadata, preview, and message count.
// Telegram is authoritative for the mutable fields, so a rename propagates
// on the next archived message. The count only bumps for genuinely new
// messages.
func (p *Pipeline) updateChat(ctx context.Context, apiChat *telegram.Chat, msg *core.Message, inserted bool) error {
	incoming := telegram.ToChat(apiChat)

	chat, err := p.store.GetChat(ctx, msg.ChatID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to load chat: %w", err)
		}
		chat = incoming
	} else {
		chat.Name = incoming.Name
		chat.Type = incoming.Type
	}

	if inserted {
		chat.MessageCount++
	}
	if msg.Date.After(chat.LastAt) {
		chat.LastMessage = msg.Text
		chat.LastAt = msg.Date
	}
	chat.SyncedAt = time.Now().UTC()

	if err := p.store.UpsertChat(ctx, chat); err != nil {
		return fmt.Errorf("failed to upsert chat: %w", err)
	}
	return nil
}

// advanceSyncState moves the chat's high-water mark forward, never back.
func (p *Pipeline) advanceSyncState(ctx context.Context, chatID, msgID int64) error {
	state, err := p.store.GetSyncState(ctx, chatID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to load sync state: %w", err)
		}
		state = &core.SyncState{ChatID: chatID}
	}

	if msgID <= state.LastMessageID {
		return nil
	}

	state.LastMessageID = msgID
	state.SyncedAt = time.Now().UTC()
	if err := p.store.SetSyncState(ctx, state); err != nil {
		return fmt.Errorf("failed to set sync state: %w", err)
	}
	return nil
}

// submitEmbedding embeds the message text asynchronously. Errors are logged
// but never fail ingestion.
func (p *Pipeline) submitEmbedding(msg *core.Message) {
	err := p.embeddingPool.Submit(func() {
		ctx := context.Background()
		vector, err := p.embedder.EmbedText(ctx, strings.TrimSpace(msg.Text))
		if err != nil {
			p.logger.Error("error embedding ingested message",
				"chatID", msg.ChatID, "msgID", msg.ID, "err", err)
			return
		}
		if err := p.store.UpdateEmbedding(ctx, msg.ChatID, msg.ID, vector); err != nil {
			p.logger.Error("error writing embedding for ingested message",
				"chatID", msg.ChatID, "msgID", msg.ID, "err", err)
		}
	})
	if err != nil {
		p.logger.Error("error submitting embedding task", "err", err)
	}
}

// pollBackoff is how long Run waits after a failed GetUpdates call.
const pollBackoff = 5 * time.Second

// Run long-polls the source and archives every message-bearing update until
// the context is cancelled. Per-update archive errors are logged and the
// update is still acknowledged; poll errors back off and retry.
func (p *Pipeline) Run(ctx context.Context, source UpdateSource) error {
	if source == nil {
		return ErrSourceRequired
	}

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := source.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("error polling for updates", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollBackoff):
			}
			continue
		}

		for i := range updates {
			update := &updates[i]
			offset = update.UpdateID + 1

			m := update.Payload()
			if m == nil {
				continue
			}
			if err := p.Archive(ctx, m); err != nil {
				p.logger.Error("error archiving update",
					"updateID", update.UpdateID, "err", err)
			}
		}
	}
}

// Release releases the embedding worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
