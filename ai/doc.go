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


// Package ai provides the embedding-provider abstraction for tgvault.
//
// The Embedder interface decouples the backfill, ingestion, and search
// pipelines from the concrete provider. Two implementations ship with the
// module:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: deterministic test double
//
// RetryEmbedder decorates any Embedder with an exponential-backoff retry
// policy. Retry lives here, at the provider boundary, rather than in the
// pipelines that consume embeddings: a pipeline that sees an error treats
// the batch as failed and moves on.
package ai
