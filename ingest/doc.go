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

// Package ingest consumes Telegram updates and archives them.
//
// The Pipeline upserts chat metadata, inserts messages with insert-or-skip
// semantics, and advances per-chat sync state. When an embedder is
// configured, newly archived text is embedded asynchronously on a worker
// pool; embedding errors are logged and never fail ingestion, since the
// backfill pipeline picks up whatever is still missing.
package ingest
