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

package telegram

import (
	"strings"
	"time"

	"github.com/tgvault/tgvault/core"
)

// MessageType derives the domain type tag from the attachment fields.
// Attachments win over text: a captioned photo is a photo.
func MessageType(m *Message) core.MessageType {
	switch {
	case len(m.Photo) > 0:
		return core.MessageTypePhoto
	case m.Video != nil:
		return core.MessageTypeVideo
	case m.Document != nil:
		return core.MessageTypeDocument
	case m.Sticker != nil:
		return core.MessageTypeSticker
	case m.Text != "":
		return core.MessageTypeText
	}
	return core.MessageTypeOther
}

// ToMessage converts a Bot API message to the domain representation.
// Captions count as text for media messages.
func ToMessage(m *Message) *core.Message {
	text := m.Text
	if text == "" {
		text = m.Caption
	}

	msg := &core.Message{
		ID:     m.MessageID,
		ChatID: m.Chat.ID,
		Type:   MessageType(m),
		Text:   text,
		Views:  m.Views,
		Date:   time.Unix(m.Date, 0).UTC(),
	}

	if m.ReplyToMessage != nil {
		replyTo := m.ReplyToMessage.MessageID
		msg.ReplyToID = &replyTo
	}
	if m.ForwardFromChat != nil {
		fromChat := m.ForwardFromChat.ID
		msg.ForwardFromChatID = &fromChat
		if m.ForwardFromMessageID != 0 {
			fromMsg := m.ForwardFromMessageID
			msg.ForwardFromMsgID = &fromMsg
		}
	}

	return msg
}

// ToChat converts a Bot API chat to the domain representation. Private
// chats have no title; the display name falls back to the user's name or
// username.
func ToChat(c *Chat) *core.Chat {
	name := c.Title
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	if name == "" {
		name = c.Username
	}

	return &core.Chat{
		ID:   c.ID,
		Name: name,
		Type: c.Type,
	}
}
