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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tgvault/tgvault"
	"github.com/tgvault/tgvault/ai"
	"github.com/tgvault/tgvault/backfill"
	"github.com/tgvault/tgvault/config"
	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/server"
	"github.com/tgvault/tgvault/storage"
	"github.com/tgvault/tgvault/telegram"
)

// loadConfig reads the environment and fails fast when required keys are
// missing, before any connection is attempted.
func loadConfig(required ...string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(required...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireEmbeddingAuth ensures an API key is present before any work
// starts when the provider is the default OpenAI endpoint. A custom base
// URL means a local or proxy deployment where the key is optional.
func requireEmbeddingAuth(cfg *config.Config) error {
	if cfg.OpenAIBaseURL != "" {
		return nil
	}
	return cfg.Validate(config.EnvOpenAIAPIKey)
}

func openArchive(ctx context.Context, cfg *config.Config) (*tgvault.Archive, error) {
	opts := []ai.ConfigOption{
		ai.WithModel(cfg.EmbeddingModel),
		ai.WithDimensions(cfg.EmbeddingDimensions),
		ai.WithAPIKey(cfg.OpenAIAPIKey),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, ai.WithHost(cfg.OpenAIBaseURL))
	}

	return tgvault.Open(ctx, cfg.DatabaseURL, tgvault.WithAIConfig(ai.NewConfig(opts...)))
}

func backfillCommand(c *cli.Context) error {
	cfg, err := loadConfig(config.EnvDatabaseURL)
	if err != nil {
		return err
	}
	if err := requireEmbeddingAuth(cfg); err != nil {
		return err
	}

	archive, err := openArchive(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	bfConfig := &backfill.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}
	if chatID := c.Int64("chat-id"); chatID != 0 {
		bfConfig.ChatID = &chatID
	}

	bf, err := archive.NewBackfiller(bfConfig, os.Stderr)
	if err != nil {
		return err
	}
	defer bf.Release()

	stats, err := bf.Run(c.Context)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	fmt.Printf("Processed %d messages: %d succeeded, %d failed, %d skipped\n",
		stats.Processed, stats.Succeeded, stats.Failed, stats.Skipped)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a search query is required")
	}

	filter, err := buildSearchFilter(
		c.Int64("chat-id"), c.String("type"),
		c.Int("limit"), c.Int("offset"),
		c.String("from"), c.String("to"),
	)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(config.EnvDatabaseURL)
	if err != nil {
		return err
	}
	if err := requireEmbeddingAuth(cfg); err != nil {
		return err
	}

	archive, err := openArchive(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	searcher, err := archive.NewSearcher()
	if err != nil {
		return err
	}

	results, err := searcher.Search(c.Context, query, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for _, res := range results {
		msg := res.Message
		fmt.Printf("%.3f  [chat %d #%d] %s  %s\n",
			res.Score, msg.ChatID, msg.ID,
			msg.Date.UTC().Format(time.RFC3339), msg.Text)
	}
	return nil
}

// buildSearchFilter converts CLI flag values into a storage filter.
func buildSearchFilter(chatID int64, typ string, limit, offset int, from, to string) (storage.SearchFilter, error) {
	filter := storage.SearchFilter{Limit: limit, Offset: offset}

	if chatID != 0 {
		filter.ChatID = &chatID
	}
	if typ != "" {
		mt := core.MessageType(typ)
		if err := core.ValidateMessageType(mt); err != nil {
			return filter, fmt.Errorf("invalid message type %q", typ)
		}
		filter.Type = &mt
	}
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, fmt.Errorf("invalid from time %q: expected RFC3339", from)
		}
		filter.From = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, fmt.Errorf("invalid to time %q: expected RFC3339", to)
		}
		filter.To = &t
	}

	return filter, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(config.EnvDatabaseURL)
	if err != nil {
		return err
	}

	addr := c.String("addr")
	if addr == "" {
		addr = cfg.Addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	srv, err := archive.NewServer(server.WithAddr(addr))
	if err != nil {
		return err
	}

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(config.EnvDatabaseURL, config.EnvTelegramBotToken)
	if err != nil {
		return err
	}
	if err := requireEmbeddingAuth(cfg); err != nil {
		return err
	}

	client, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to validate bot token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Ingesting as @%s\n", me.Username)

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	pipeline, err := archive.NewIngestPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if err := pipeline.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

var seedSentences = []string{
	"Anyone up for lunch at the usual place?",
	"The deploy went out an hour ago, all green so far.",
	"Check out this article on vector databases.",
	"I'll be late to standup, train is stuck again.",
	"The migration finished overnight without issues.",
	"Can someone review my PR before the weekend?",
	"Happy birthday! Hope you have a great day.",
	"The conference talk recordings are up now.",
	"We should benchmark the new index before rollout.",
	"Does anyone still have the keys to the old office?",
	"Reminder: retro moved to Thursday this week.",
	"The coffee machine is broken again.",
}

var seedChats = []*core.Chat{
	{ID: -1001000000001, Name: "engineering", Type: "supergroup"},
	{ID: -1001000000002, Name: "random", Type: "supergroup"},
	{ID: 4242, Name: "Ada Lovelace", Type: "private"},
}

func seedCommand(c *cli.Context) error {
	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	cfg, err := loadConfig(config.EnvDatabaseURL)
	if err != nil {
		return err
	}

	archive, err := openArchive(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	store := archive.Store()
	ctx := c.Context
	now := time.Now().UTC()

	total := 0
	for _, chat := range seedChats {
		msgs := make([]*core.Message, count)
		for i := 0; i < count; i++ {
			msgs[i] = &core.Message{
				ID:     int64(i + 1),
				ChatID: chat.ID,
				Type:   core.MessageTypeText,
				Text:   seedSentences[i%len(seedSentences)],
				Date:   now.Add(-time.Duration(count-i) * time.Minute),
			}
		}

		inserted, err := store.InsertMessages(ctx, msgs...)
		if err != nil {
			return fmt.Errorf("failed to seed chat %d: %w", chat.ID, err)
		}
		total += inserted

		last := msgs[count-1]
		chat.LastMessage = last.Text
		chat.LastAt = last.Date
		chat.SyncedAt = now
		chat.MessageCount = count
		if err := store.UpsertChat(ctx, chat); err != nil {
			return fmt.Errorf("failed to seed chat %d: %w", chat.ID, err)
		}
		if err := store.SetSyncState(ctx, &core.SyncState{
			ChatID: chat.ID, LastMessageID: last.ID, SyncedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to seed sync state for chat %d: %w", chat.ID, err)
		}
	}

	fmt.Printf("Seeded %d messages across %d chats\n", total, len(seedChats))
	fmt.Println("Run `tgvault backfill` to embed them.")
	return nil
}
