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

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidChat indicates a Chat failed validation.
	ErrInvalidChat = errors.New("invalid chat")

	// ErrInvalidFolder indicates a Folder failed validation.
	ErrInvalidFolder = errors.New("invalid folder")

	// ErrInvalidID indicates a non-positive identifier.
	ErrInvalidID = errors.New("id must be positive")

	// ErrInvalidChatID indicates a missing or zero chat id.
	ErrInvalidChatID = errors.New("chat id must be non-zero")

	// ErrInvalidMessageType indicates an unknown message type tag.
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyTitle indicates the folder Title field is empty.
	ErrEmptyTitle = errors.New("folder title cannot be empty")
)
