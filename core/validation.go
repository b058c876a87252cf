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


package core

import (
	"fmt"
	"time"
)

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - ID must be positive (Telegram message ids start at 1)
//   - ChatID must be non-zero (group and channel ids are negative)
//   - Type must be a known tag
//   - Date must not be in the future
//
// NOT validated (populated later):
//   - Embedding (nil until the backfill pipeline runs)
//   - Text (media messages legitimately carry none)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidID)
	}

	if msg.ChatID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidChatID)
	}

	if err := ValidateMessageType(msg.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if !IsValidTimestamp(msg.Date) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateChat validates a Chat according to domain rules.
func ValidateChat(chat *Chat) error {
	if chat == nil {
		return fmt.Errorf("%w: chat is nil", ErrInvalidChat)
	}

	if chat.ID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChat, ErrInvalidChatID)
	}

	return nil
}

// ValidateFolder validates a Folder according to domain rules.
func ValidateFolder(folder *Folder) error {
	if folder == nil {
		return fmt.Errorf("%w: folder is nil", ErrInvalidFolder)
	}

	if folder.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFolder, ErrInvalidID)
	}

	if folder.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFolder, ErrEmptyTitle)
	}

	return nil
}

// ValidateMessageType validates that a MessageType is a known tag.
func ValidateMessageType(mt MessageType) error {
	for _, valid := range MessageTypes {
		if mt == valid {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidMessageType, mt)
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
