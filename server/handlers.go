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

package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/search"
	"github.com/tgvault/tgvault/storage"
)

// defaultHistoryLimit bounds GET /api/chats/{id}/messages.
const defaultHistoryLimit = 50

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.SearchFilter{}
	var err error
	if filter.ChatID, err = parseInt64Param(q.Get("chat_id")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid chat_id")
		return
	}
	if typ := q.Get("type"); typ != "" {
		mt := core.MessageType(typ)
		if err := core.ValidateMessageType(mt); err != nil {
			respondError(w, http.StatusBadRequest, "invalid type")
			return
		}
		filter.Type = &mt
	}
	if filter.From, err = parseTimeParam(q.Get("from")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid from")
		return
	}
	if filter.To, err = parseTimeParam(q.Get("to")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid to")
		return
	}
	filter.Limit = parseIntParam(q.Get("limit"), 0)
	filter.Offset = parseIntParam(q.Get("offset"), 0)

	results, err := s.searcher.Search(r.Context(), q.Get("q"), filter)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			respondError(w, http.StatusBadRequest, "q query parameter is required")
			return
		}
		s.logger.Error("search failed", "err", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	out := make([]searchResultJSON, len(results))
	for i, res := range results {
		out[i] = searchResultJSON{Message: toMessageJSON(res.Message), Score: res.Score}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ListChats(r.Context())
	if err != nil {
		s.logger.Error("failed to list chats", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}

	out := make([]chatJSON, len(chats))
	for i, chat := range chats {
		out[i] = toChatJSON(chat)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	q := r.URL.Query()
	var beforeID int64
	if before, err := parseInt64Param(q.Get("before")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid before")
		return
	} else if before != nil {
		beforeID = *before
	}
	limit := parseIntParam(q.Get("limit"), defaultHistoryLimit)

	msgs, err := s.store.ListMessages(r.Context(), chatID, beforeID, limit)
	if err != nil {
		s.logger.Error("failed to list messages", "chatID", chatID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	out := make([]messageJSON, len(msgs))
	for i, msg := range msgs {
		out[i] = toMessageJSON(msg)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.ListFolders(r.Context())
	if err != nil {
		s.logger.Error("failed to list folders", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to list folders")
		return
	}

	out := make([]folderJSON, len(folders))
	for i, folder := range folders {
		out[i] = folderJSON{ID: folder.ID, Title: folder.Title, Emoji: folder.Emoji}
	}
	respondJSON(w, http.StatusOK, out)
}

func parseInt64Param(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
