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
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tgvault/tgvault/core"
)

// messageJSON is the wire shape of an archived message. The embedding is
// deliberately omitted.
type messageJSON struct {
	ID                int64  `json:"id"`
	ChatID            int64  `json:"chatId"`
	Type              string `json:"type"`
	Text              string `json:"text"`
	ReplyToID         *int64 `json:"replyToId,omitempty"`
	ForwardFromChatID *int64 `json:"forwardFromChatId,omitempty"`
	ForwardFromMsgID  *int64 `json:"forwardFromMsgId,omitempty"`
	Views             int    `json:"views,omitempty"`
	Forwards          int    `json:"forwards,omitempty"`
	Date              string `json:"date"`
}

type searchResultJSON struct {
	Message messageJSON `json:"message"`
	Score   float32     `json:"score"`
}

type chatJSON struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	LastMessage  string `json:"lastMessage,omitempty"`
	LastAt       string `json:"lastAt,omitempty"`
	MessageCount int    `json:"messageCount"`
	FolderID     *int64 `json:"folderId,omitempty"`
}

type folderJSON struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Emoji string `json:"emoji,omitempty"`
}

func toMessageJSON(m *core.Message) messageJSON {
	return messageJSON{
		ID:                m.ID,
		ChatID:            m.ChatID,
		Type:              string(m.Type),
		Text:              m.Text,
		ReplyToID:         m.ReplyToID,
		ForwardFromChatID: m.ForwardFromChatID,
		ForwardFromMsgID:  m.ForwardFromMsgID,
		Views:             m.Views,
		Forwards:          m.Forwards,
		Date:              m.Date.UTC().Format(time.RFC3339),
	}
}

func toChatJSON(c *core.Chat) chatJSON {
	out := chatJSON{
		ID:           c.ID,
		Name:         c.Name,
		Type:         c.Type,
		LastMessage:  c.LastMessage,
		MessageCount: c.MessageCount,
		FolderID:     c.FolderID,
	}
	if !c.LastAt.IsZero() {
		out.LastAt = c.LastAt.UTC().Format(time.RFC3339)
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
