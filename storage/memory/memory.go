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


// Package memory provides an in-memory storage.Store implementation.
//
// It honors the same conflict and similarity semantics as the Postgres
// backend and exists primarily so pipeline tests run without a database.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu        sync.RWMutex
	messages  map[storage.MessageKey]*core.Message
	chats     map[int64]*core.Chat
	folders   map[int64]*core.Folder
	syncState map[int64]*core.SyncState
	closed    bool
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		messages:  make(map[storage.MessageKey]*core.Message),
		chats:     make(map[int64]*core.Chat),
		folders:   make(map[int64]*core.Folder),
		syncState: make(map[int64]*core.SyncState),
	}
}

func (s *Store) InsertMessages(ctx context.Context, msgs ...*core.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, storage.ErrStorageClosed
	}

	inserted := 0
	for _, msg := range msgs {
		if err := core.ValidateMessage(msg); err != nil {
			return inserted, err
		}
		key := storage.MessageKey{ChatID: msg.ChatID, ID: msg.ID}
		if _, exists := s.messages[key]; exists {
			continue // insert-or-skip
		}
		s.messages[key] = cloneMessage(msg)
		inserted++
	}
	return inserted, nil
}

func (s *Store) GetMessage(ctx context.Context, chatID, msgID int64) (*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[storage.MessageKey{ChatID: chatID, ID: msgID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneMessage(msg), nil
}

func (s *Store) ListMessages(ctx context.Context, chatID, beforeID int64, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeID <= 0 {
		beforeID = math.MaxInt64
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []*core.Message
	for key, msg := range s.messages {
		if key.ChatID == chatID && key.ID < beforeID {
			msgs = append(msgs, cloneMessage(msg))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *Store) CountMissingEmbeddings(ctx context.Context, filter storage.BackfillFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, msg := range s.messages {
		if msg.Embedding != nil {
			continue
		}
		if filter.ChatID != nil && msg.ChatID != *filter.ChatID {
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) MissingEmbeddings(ctx context.Context, filter storage.BackfillFilter, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var eligible []*core.Message
	for _, msg := range s.messages {
		if msg.Embedding != nil {
			continue
		}
		if filter.ChatID != nil && msg.ChatID != *filter.ChatID {
			continue
		}
		if filter.After != nil && !afterKey(msg, filter.After) {
			continue
		}
		eligible = append(eligible, cloneMessage(msg))
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].ChatID != eligible[j].ChatID {
			return eligible[i].ChatID < eligible[j].ChatID
		}
		return eligible[i].ID < eligible[j].ID
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *Store) UpdateEmbedding(ctx context.Context, chatID, msgID int64, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[storage.MessageKey{ChatID: chatID, ID: msgID}]
	if !ok {
		return storage.ErrNotFound
	}
	msg.Embedding = append([]float32(nil), vector...)
	return nil
}

func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, filter storage.SearchFilter) ([]*core.SearchResult, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", storage.ErrInvalidQuery)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = storage.DefaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*core.SearchResult
	for _, msg := range s.messages {
		if msg.Embedding == nil {
			continue
		}
		if filter.ChatID != nil && msg.ChatID != *filter.ChatID {
			continue
		}
		if filter.Type != nil && msg.Type != *filter.Type {
			continue
		}
		if filter.From != nil && msg.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && msg.Date.After(*filter.To) {
			continue
		}
		results = append(results, &core.SearchResult{
			Message: cloneMessage(msg),
			Score:   cosineSimilarity(embedding, msg.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if filter.Offset >= len(results) {
		return nil, nil
	}
	results = results[filter.Offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) UpsertChat(ctx context.Context, chat *core.Chat) error {
	if err := core.ValidateChat(chat); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := *chat
	s.chats[chat.ID] = &c
	return nil
}

func (s *Store) GetChat(ctx context.Context, id int64) (*core.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *chat
	return &c, nil
}

func (s *Store) ListChats(ctx context.Context) ([]*core.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]*core.Chat, 0, len(s.chats))
	for _, chat := range s.chats {
		c := *chat
		chats = append(chats, &c)
	}
	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].LastAt.Equal(chats[j].LastAt) {
			return chats[i].LastAt.After(chats[j].LastAt)
		}
		return chats[i].ID < chats[j].ID
	})
	return chats, nil
}

func (s *Store) UpsertFolder(ctx context.Context, folder *core.Folder) error {
	if err := core.ValidateFolder(folder); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := *folder
	s.folders[folder.ID] = &f
	return nil
}

func (s *Store) ListFolders(ctx context.Context) ([]*core.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := make([]*core.Folder, 0, len(s.folders))
	for _, folder := range s.folders {
		f := *folder
		folders = append(folders, &f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].ID < folders[j].ID })
	return folders, nil
}

func (s *Store) GetSyncState(ctx context.Context, chatID int64) (*core.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.syncState[chatID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *st
	return &copied, nil
}

func (s *Store) SetSyncState(ctx context.Context, state *core.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *state
	s.syncState[state.ChatID] = &st
	return nil
}

// Close marks the store closed. Subsequent inserts fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func afterKey(msg *core.Message, after *storage.MessageKey) bool {
	if msg.ChatID != after.ChatID {
		return msg.ChatID > after.ChatID
	}
	return msg.ID > after.ID
}

func cloneMessage(msg *core.Message) *core.Message {
	c := *msg
	if msg.Embedding != nil {
		c.Embedding = append([]float32(nil), msg.Embedding...)
	}
	return &c
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
