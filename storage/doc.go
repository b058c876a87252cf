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


// Package storage provides the storage abstraction layer for tgvault.
//
// This package defines repository interfaces that decouple storage
// implementation from the ingestion, backfill, and search pipelines. Two
// backends implement them:
//
//   - storage/postgres: production backend on Postgres with the pgvector
//     extension
//   - storage/memory: in-memory backend honoring the same conflict and
//     similarity semantics, used in tests
//
// # Conflict semantics
//
// Message inserts are insert-or-skip keyed by (chat_id, id): re-archiving
// an already-seen message is a no-op. Chat, folder, and sync-state writes
// are insert-or-update keyed by id, overwriting mutable fields. These
// semantics make every pipeline in the system safely re-runnable.
//
// # Thread safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage
