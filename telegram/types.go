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

// User is a Bot API user, as returned by getMe.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat is a Bot API chat. Group and channel IDs are negative.
type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PhotoSize is one size variant of a photo attachment.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Video is a video attachment.
type Video struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
}

// Document is a generic file attachment.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// Sticker is a sticker attachment.
type Sticker struct {
	FileID string `json:"file_id"`
	Emoji  string `json:"emoji"`
}

// Message is a Bot API message. Date is a unix timestamp.
type Message struct {
	MessageID            int64       `json:"message_id"`
	Date                 int64       `json:"date"`
	Chat                 Chat        `json:"chat"`
	Text                 string      `json:"text"`
	Caption              string      `json:"caption"`
	Photo                []PhotoSize `json:"photo"`
	Video                *Video      `json:"video"`
	Document             *Document   `json:"document"`
	Sticker              *Sticker    `json:"sticker"`
	Views                int         `json:"views"`
	ReplyToMessage       *Message    `json:"reply_to_message"`
	ForwardFromChat      *Chat       `json:"forward_from_chat"`
	ForwardFromMessageID int64       `json:"forward_from_message_id"`
}

// Update is one entry from getUpdates. Exactly one of the payload fields is
// set per update; the archiver only consumes message-bearing ones.
type Update struct {
	UpdateID          int64    `json:"update_id"`
	Message           *Message `json:"message"`
	EditedMessage     *Message `json:"edited_message"`
	ChannelPost       *Message `json:"channel_post"`
	EditedChannelPost *Message `json:"edited_channel_post"`
}

// Payload returns the message carried by the update, or nil if the update
// is not message-bearing. Edits are returned too; the storage layer's
// insert-or-skip semantics keep the original archived copy.
func (u *Update) Payload() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.ChannelPost != nil:
		return u.ChannelPost
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost
	}
	return nil
}
